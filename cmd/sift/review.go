package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/review"
)

func reviewCmd() *cobra.Command {
	var action, domain string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Interactively approve, edit or revise pending plans",
		Long: `Walks through pending plans one at a time. For each plan you can approve,
reject, skip, edit the action or destination, force a delete, or describe
what is wrong in plain language and let the AI revise it. Revisions are
remembered and applied to similar items in the future.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			act, err := parseActionFlag(action)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			plans, err := a.controller.Pending(cmd.Context(), act, domain)
			if err != nil {
				return err
			}
			if len(plans) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No pending plans to review."))
				return nil
			}

			prompter := cli.NewReviewPrompter(cmd.InOrStdin(), cmd.OutOrStdout(), a.prompterOptions())
			_, err = runReview(cmd.Context(), a, plans, prompter, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "only review plans with this action")
	cmd.Flags().StringVar(&domain, "domain", "", "only review plans for this domain or area")
	return cmd
}

// runReview runs an interruptible review session and prints its tally.
func runReview(ctx context.Context, a *app, plans []model.Plan, p review.Prompter, out io.Writer) (review.Tally, error) {
	handler := cli.NewInterruptHandler(out, "Undecided plans stay pending; run `sift review` to continue.")
	ctx, stop := handler.Watch(ctx)
	defer stop()

	tally, err := a.controller.Run(ctx, plans, p)
	fmt.Fprintln(out, formatTally(tally))
	if err != nil {
		if handler.WasInterrupted() || errors.Is(err, io.EOF) {
			return tally, nil
		}
		return tally, err
	}
	return tally, nil
}

func formatTally(t review.Tally) string {
	parts := []string{
		fmt.Sprintf("%d approved", t.Approved),
		fmt.Sprintf("%d to delete", t.Deleted),
		fmt.Sprintf("%d edited", t.Edited),
		fmt.Sprintf("%d revised", t.Revised),
		fmt.Sprintf("%d rejected", t.Rejected),
		fmt.Sprintf("%d deferred", t.Deferred),
	}
	line := "Review finished: " + strings.Join(parts, ", ")
	if t.Errors > 0 {
		return cli.FormatWarning(fmt.Sprintf("%s (%d errors)", line, t.Errors))
	}
	return cli.FormatSuccess(line)
}

func reviseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revise <plan-id> <feedback...>",
		Short: "Reclassify a pending plan from plain-language feedback",
		Example: `  sift revise 3f2a9c1e "this is a medical bill, it goes in Health"
  sift revise 3f2a9c1e keep screenshots of receipts in Finance`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			feedback := strings.TrimSpace(strings.Join(args[1:], " "))
			res, err := a.controller.Revise(ctx, args[0], feedback)
			out := cmd.OutOrStdout()
			if res != nil && res.Plan != nil {
				fmt.Fprintln(out, cli.RenderBox("Revised plan "+res.Plan.ID, cli.PlanCard(*res.Plan)))
			}
			if err != nil {
				return err
			}
			if res.Correction != nil {
				fmt.Fprintln(out, cli.FormatSuccess("Learned: "+res.Correction.RuleDescription()))
			}
			return nil
		},
	}
}
