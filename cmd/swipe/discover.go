package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meetsmatch/swipeclient/internal/discovery"
	apperrors "github.com/meetsmatch/swipeclient/internal/errors"
)

func newDiscoverCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Swipe through candidates",
		Long: `Shows candidates one at a time. Answer with l (like), d (dislike),
r (reload) or q (quit). Candidates you already decided on are hidden unless
--all is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			if _, err := a.login(ctx); err != nil {
				return err
			}
			out := &syncWriter{w: cmd.OutOrStdout()}

			cache := a.session.Cache()
			feed := discovery.NewFeed(a.client, cache,
				discovery.WithFeedInstrumentation(a.inst),
				discovery.WithPrefetchErrorHandler(func(err error) {
					fmt.Fprintln(out, "(could not load more candidates:", err, ")")
				}),
			)
			defer feed.Close()

			proc := discovery.NewProcessor(a.client, feed, cache,
				discovery.WithProcessorInstrumentation(a.inst))
			defer proc.Close()
			// the feed is closed by the deferred call; closing it from the
			// hook could wait on the prefetch that triggered the logout
			a.session.OnLogout(proc.Close)

			if _, err := feed.FetchCandidates(ctx, all); err != nil {
				return err
			}
			return runDiscoverLoop(ctx, cmd.InOrStdin(), out, feed, proc, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include candidates you already liked or disliked")
	return cmd
}

func runDiscoverLoop(ctx context.Context, in io.Reader, out io.Writer, feed *discovery.Feed, proc *discovery.Processor, all bool) error {
	scanner := bufio.NewScanner(in)
	read := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return strings.ToLower(strings.TrimSpace(scanner.Text())), true
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, ok := proc.PendingMatch(); ok {
			fmt.Fprintln(out, "It's a match! Press Enter to keep swiping.")
			if _, ok := read(); !ok {
				return scanner.Err()
			}
			proc.DismissMatch()
			continue
		}

		candidate, ok := feed.Current()
		if !ok {
			fmt.Fprint(out, "No more candidates. [r]eload [q]uit > ")
			answer, ok := read()
			if !ok {
				return scanner.Err()
			}
			switch answer {
			case "r", "reload":
				if _, err := feed.FetchCandidates(ctx, all); err != nil {
					if apperrors.IsAuthentication(err) {
						return err
					}
					fmt.Fprintln(out, "Reload failed:", err)
				}
			case "q", "quit":
				return nil
			}
			continue
		}

		cursor, total := feed.Position()
		printProfile(out, candidate)
		fmt.Fprintf(out, "[%d/%d] [l]ike [d]islike [r]eload [q]uit > ", cursor+1, total)

		answer, ok := read()
		if !ok {
			return scanner.Err()
		}

		var err error
		switch answer {
		case "l", "like":
			_, err = proc.Like(ctx, candidate)
		case "d", "dislike":
			_, err = proc.Dislike(ctx, candidate)
		case "r", "reload":
			if _, err := feed.FetchCandidates(ctx, all); err != nil {
				if apperrors.IsAuthentication(err) {
					return err
				}
				fmt.Fprintln(out, "Reload failed:", err)
			}
			continue
		case "q", "quit":
			return nil
		default:
			fmt.Fprintln(out, "Answer l, d, r or q.")
			continue
		}

		switch {
		case err == nil:
		case apperrors.IsAuthentication(err), errors.Is(err, discovery.ErrProcessorClosed):
			return err
		case discovery.IsDecisionInFlight(err):
			fmt.Fprintln(out, "Still sending your last answer, try again.")
		default:
			fmt.Fprintln(out, "That did not go through, try again:", err)
		}
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget every like and dislike and start discovery over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			if _, err := a.login(ctx); err != nil {
				return err
			}

			cache := a.session.Cache()
			feed := discovery.NewFeed(a.client, cache, discovery.WithFeedInstrumentation(a.inst))
			defer feed.Close()

			candidates, err := discovery.ResetAll(ctx, a.client, cache, feed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Decisions cleared, %d candidate(s) available.\n", len(candidates))
			return nil
		},
	}
}
