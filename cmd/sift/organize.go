package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/config"
	"github.com/Veraticus/sift/internal/intake"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/service"
)

func organizeCmd() *cobra.Command {
	var (
		noAutoDelete bool
		yes          bool
	)

	cmd := &cobra.Command{
		Use:   "organize [path]",
		Short: "Scan, classify, review and execute in one pass",
		Long: `Scans a directory (default paths.scan, or the vault with --vault), creates a
plan for every item that does not already have one, auto-approves
deletions, walks you through the rest and finally executes what you
approved.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			root := a.defaultScanRoot()
			if len(args) == 1 {
				root = config.ExpandPath(args[0])
			}

			paths, err := a.scan(root)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Found %d items in %s", len(paths), root)))

			if len(paths) > 0 {
				res, err := classifyPaths(ctx, a, paths, out)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf(
					"Created %d plans (%d already planned, %d unreadable)",
					len(res.Saved), res.Existing, res.Unreadable)))
			}

			pending, err := a.controller.Pending(ctx, "", "")
			if err != nil {
				return err
			}

			if !noAutoDelete {
				n, err := a.controller.AutoApproveDeletes(ctx, pending)
				if err != nil {
					return err
				}
				if n > 0 {
					fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Auto-approved %d deletions", n)))
				}
				pending = withoutAction(pending, model.ActionDelete)
			}

			prompter := cli.NewReviewPrompter(cmd.InOrStdin(), out, a.prompterOptions())
			if len(pending) > 0 {
				if _, err := runReview(ctx, a, pending, prompter, out); err != nil {
					return err
				}
			}
			if ctx.Err() != nil {
				return nil
			}

			summary, err := a.store.Summary(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, cli.SummaryView(summary))

			approved, err := a.store.ListPlans(ctx, service.PlanFilter{Status: model.StatusApproved})
			if err != nil {
				return err
			}
			if len(approved) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("Nothing approved to execute."))
				return nil
			}
			fmt.Fprintln(out, cli.PlanTable(approved))

			if !yes {
				ok, err := prompter.Confirm(ctx, fmt.Sprintf("Execute %d approved plans?", len(approved)))
				if err != nil || !ok {
					fmt.Fprintln(out, cli.FormatInfo("Approved plans kept; run `sift execute` when ready."))
					return nil
				}
			}
			return runExecute(ctx, a, nil, out)
		},
	}

	cmd.Flags().BoolVar(&noAutoDelete, "no-auto-delete", false, "review deletions instead of approving them automatically")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "execute without asking for confirmation")
	return cmd
}

// classifyPaths runs intake in batches so the progress bar moves while the
// oracle works.
func classifyPaths(ctx context.Context, a *app, paths []string, out io.Writer) (intake.Result, error) {
	var total intake.Result
	size := max(a.settings.Classification.BatchSize, 1)
	bar := cli.NewProgress(out, len(paths), "Classifying")
	defer func() { _ = bar.Finish() }()

	for start := 0; start < len(paths); start += size {
		chunk := paths[start:min(start+size, len(paths))]
		res, err := a.intake.Run(ctx, chunk)
		total.Saved = append(total.Saved, res.Saved...)
		total.Existing += res.Existing
		total.Unreadable += res.Unreadable
		total.Dropped += res.Dropped
		if err != nil {
			return total, err
		}
		_ = bar.Add(len(chunk))
	}
	return total, nil
}

func withoutAction(plans []model.Plan, action model.Action) []model.Plan {
	out := plans[:0:0]
	for _, p := range plans {
		if p.Action != action {
			out = append(out, p)
		}
	}
	return out
}
