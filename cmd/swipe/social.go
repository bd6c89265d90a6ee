package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/meetsmatch/swipeclient/internal/api"
	"github.com/meetsmatch/swipeclient/internal/services"
)

func newMatchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "matches",
		Short: "List your matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			if _, err := a.login(ctx); err != nil {
				return err
			}

			matches, err := services.NewReconciler(a.client).LoadMatches(ctx)
			if err != nil {
				return err
			}
			printMatches(cmd.OutOrStdout(), matches)
			return nil
		},
	}
}

func newConversationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"convos"},
		Short:   "List conversations, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			if _, err := a.login(ctx); err != nil {
				return err
			}

			convos, err := services.NewReconciler(a.client).LoadConversations(ctx)
			if err != nil {
				return err
			}
			printConversations(cmd.OutOrStdout(), convos)
			return nil
		},
	}
}

func newUnmatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unmatch <match-id>",
		Short: "Remove a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			if _, err := a.login(ctx); err != nil {
				return err
			}

			if err := services.NewReconciler(a.client).Unmatch(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unmatched %s.\n", args[0])
			return nil
		},
	}
}

// messagePrinter writes each message of a thread once, whichever of the
// poller or the prompt saw it first
type messagePrinter struct {
	mu   sync.Mutex
	out  io.Writer
	self string
	seen map[string]struct{}
}

func (p *messagePrinter) print(messages []api.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range messages {
		key := m.ID
		if key == "" {
			key = m.SenderID + "|" + m.CreatedAt.String() + "|" + m.Content
		}
		if _, ok := p.seen[key]; ok {
			continue
		}
		p.seen[key] = struct{}{}
		printMessage(p.out, m, p.self)
	}
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <match-id>",
		Short: "Open the conversation of a match",
		Long: `Prints the conversation and keeps polling for new messages. Every
line you type is sent; /quit leaves.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			sess, err := a.login(ctx)
			if err != nil {
				return err
			}

			out := &syncWriter{w: cmd.OutOrStdout()}
			printer := &messagePrinter{
				out:  out,
				self: sess.User.UID,
				seen: make(map[string]struct{}),
			}
			thread, err := services.NewThread(a.client, args[0],
				services.WithPollInterval(a.cfg.PollInterval),
				services.WithThreadInstrumentation(a.inst),
				services.WithUpdateHandler(printer.print),
			)
			if err != nil {
				return err
			}
			defer thread.Close()
			a.session.OnLogout(thread.Close)

			messages, err := thread.Open(ctx)
			if err != nil {
				return err
			}
			printer.print(messages)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "/quit", "/q":
					return nil
				}
				if _, err := thread.Send(ctx, line); err != nil {
					fmt.Fprintln(out, "Message not sent:", err)
				}
			}
			return scanner.Err()
		},
	}
}
