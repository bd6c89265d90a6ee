package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meetsmatch/swipeclient/internal/rating"
	"github.com/meetsmatch/swipeclient/internal/services"
)

func newRateCmd() *cobra.Command {
	var (
		sub    rating.Submission
		remove bool
	)

	cmd := &cobra.Command{
		Use:   "rate <user-id>",
		Short: "Rate a match, or change your earlier rating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			if _, err := a.login(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			reconciler := services.NewReconciler(a.client)
			svc := services.NewRatingService(a.client, reconciler)

			if remove {
				mine, err := svc.Mine(ctx, args[0])
				if err != nil {
					return err
				}
				if mine == nil {
					fmt.Fprintln(out, "You have not rated this user.")
					return nil
				}
				if err := svc.Delete(ctx, mine.ID); err != nil {
					return err
				}
				fmt.Fprintln(out, "Rating deleted.")
				return nil
			}

			if _, err := reconciler.LoadMatches(ctx); err != nil {
				return err
			}
			res, err := svc.Rate(ctx, args[0], sub)
			if err != nil {
				return err
			}

			verb := "saved"
			if res.Updated {
				verb = "updated"
			}
			fmt.Fprintf(out, "Rating %s.\n", verb)
			for _, m := range reconciler.Matches() {
				if m.CounterpartID() == args[0] {
					fmt.Fprintf(out, "Their rating is now about %s.\n", formatAggregate(m.AverageRating))
					break
				}
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&sub.Overall, "overall", 0, "Overall rating, 1 to 5 (required)")
	cmd.Flags().Float64Var(&sub.Personality, "personality", 0, "Personality, 1 to 5")
	cmd.Flags().Float64Var(&sub.Reliability, "reliability", 0, "Reliability, 1 to 5")
	cmd.Flags().Float64Var(&sub.Communication, "communication", 0, "Communication, 1 to 5")
	cmd.Flags().Float64Var(&sub.Authenticity, "authenticity", 0, "Authenticity, 1 to 5")
	cmd.Flags().StringVar(&sub.Comment, "comment", "", "Optional comment")
	cmd.Flags().BoolVar(&remove, "delete", false, "Delete your rating of this user instead")
	return cmd
}

func newRatingsCmd() *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "ratings [user-id]",
		Short: "List the ratings a user received",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			sess, err := a.login(ctx)
			if err != nil {
				return err
			}
			svc := services.NewRatingService(a.client, nil)

			if clearAll {
				if err := svc.ClearAll(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All your ratings were removed.")
				return nil
			}

			uid := sess.User.UID
			if len(args) == 1 {
				uid = args[0]
			}
			ratings, err := svc.ForUser(ctx, uid)
			if err != nil {
				return err
			}
			printRatings(cmd.OutOrStdout(), ratings)
			return nil
		},
	}

	cmd.Flags().BoolVar(&clearAll, "clear-all", false, "Remove every rating you gave or received")
	return cmd
}
