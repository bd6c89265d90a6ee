package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/meetsmatch/swipeclient/internal/config"
	"github.com/meetsmatch/swipeclient/internal/telemetry"
)

var version = "0.1.0"

// rootOptions are the persistent flags; set values override the environment
type rootOptions struct {
	apiURL  string
	token   string
	store   string
	timeout time.Duration
	verbose bool

	// built by PersistentPreRunE, closed by execute
	app *app
}

func (o *rootOptions) apply(cfg *config.Config) {
	if o.apiURL != "" {
		cfg.APIBaseURL = o.apiURL
	}
	if o.token != "" {
		cfg.AuthToken = o.token
	}
	if o.store != "" {
		cfg.DecisionStore = o.store
	}
	if o.timeout > 0 {
		cfg.APITimeout = o.timeout
	}
}

type appKey struct{}

// appFrom returns the app built by the root command's PersistentPreRunE
func appFrom(cmd *cobra.Command) *app {
	a, _ := cmd.Context().Value(appKey{}).(*app)
	return a
}

func newRootCmd(opts *rootOptions) *cobra.Command {

	rootCmd := &cobra.Command{
		Use:   "swipe",
		Short: "Terminal client for the swipe dating backend",
		Long: `swipe browses candidates, records likes and dislikes, and manages
matches, conversations and ratings against the dating backend.

Configuration comes from .env and the environment (API_BASE_URL, AUTH_TOKEN,
DECISION_STORE, ...); flags override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ctx := telemetry.WithCorrelationID(cmd.Context(), telemetry.NewCorrelationID())
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			opts.app = a
			cmd.SetContext(context.WithValue(ctx, appKey{}, a))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "Backend base URL (or set API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", "", "Bearer token (or set AUTH_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&opts.store, "store", "", "Decision store: sqlite, memory, redis or postgres (or set DECISION_STORE)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "Per-request timeout (or set API_TIMEOUT)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newDiscoverCmd(),
		newResetCmd(),
		newMatchesCmd(),
		newConversationsCmd(),
		newChatCmd(),
		newUnmatchCmd(),
		newRateCmd(),
		newRatingsCmd(),
		newProfileCmd(),
		newHealthCmd(),
	)
	return rootCmd
}

// execute runs one command line and releases everything it opened
func execute(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	opts := &rootOptions{}
	rootCmd := newRootCmd(opts)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	defer func() {
		if opts.app != nil {
			opts.app.close()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
