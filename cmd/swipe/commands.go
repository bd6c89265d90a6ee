package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meetsmatch/swipeclient/internal/api"
	"github.com/meetsmatch/swipeclient/internal/monitoring"
	"github.com/meetsmatch/swipeclient/internal/services"
)

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile [user-id]",
		Short: "Show your profile or another user's",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			if _, err := a.login(ctx); err != nil {
				return err
			}
			users := services.NewUserService(a.client, a.cfg.ProfileTTL)

			var (
				profile *api.Profile
				err     error
			)
			if len(args) == 0 {
				profile, err = users.OwnProfile(ctx)
			} else {
				profile, err = users.Profile(ctx, args[0])
			}
			if err != nil {
				return err
			}
			printProfile(cmd.OutOrStdout(), *profile)
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the backend and the decision store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			report := a.health.Check(cmd.Context())
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				names := make([]string, 0, len(report.Components))
				for name := range report.Components {
					names = append(names, name)
				}
				sort.Strings(names)

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "COMPONENT\tSTATUS\tLATENCY\tMESSAGE")
				for _, name := range names {
					c := report.Components[name]
					latency := "-"
					if c.Latency != nil {
						latency = fmt.Sprintf("%dms", *c.Latency)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, c.Status, latency, c.Message)
				}
				tw.Flush()
				fmt.Fprintf(out, "overall: %s\n", report.Status)
			}

			if report.Status == monitoring.HealthStatusUnhealthy {
				return fmt.Errorf("%s is unhealthy", report.Service)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")
	return cmd
}
