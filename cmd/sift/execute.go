package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/service"
)

func executeCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "execute [plan-id...]",
		Short: "Carry out approved plans",
		Long: `Executes every approved plan, or only the listed ones. Sources are backed
up first, destinations never overwrite existing files, and deletions go to
the system trash. With --dry-run nothing on disk changes and plans stay
approved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				viper.Set("safety.dry_run", true)
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return runExecute(cmd.Context(), a, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would happen without changing anything")
	return cmd
}

// runExecute executes approved plans with a progress bar, prints the
// results and fails when any plan failed.
func runExecute(ctx context.Context, a *app, ids []string, out io.Writer) error {
	total := len(ids)
	if total == 0 {
		approved, err := a.store.ListPlans(ctx, service.PlanFilter{Status: model.StatusApproved})
		if err != nil {
			return err
		}
		total = len(approved)
	}
	if total == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No approved plans to execute."))
		return nil
	}

	if a.executor.DryRun() {
		fmt.Fprintln(out, cli.FormatWarning("Dry run: no files will be changed"))
	}

	bar := cli.NewProgress(out, total, "Executing")
	progress := func(model.ExecutionResult) { _ = bar.Add(1) }

	var (
		results []model.ExecutionResult
		err     error
	)
	if len(ids) > 0 {
		results, err = a.executor.ExecuteIDs(ctx, ids, progress)
	} else {
		results, err = a.executor.ExecuteAllApproved(ctx, progress)
	}
	_ = bar.Finish()

	fmt.Fprintln(out, cli.ResultsView(results))
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d plans failed", failed, len(results))
	}
	return nil
}
