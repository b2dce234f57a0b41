package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/service"
)

// parseActionFlag accepts an empty value as "any action".
func parseActionFlag(raw string) (model.Action, error) {
	if raw == "" {
		return "", nil
	}
	a, ok := model.ParseAction(raw)
	if !ok {
		return "", fmt.Errorf("unknown action %q (valid: move, delete, archive, skip, rename)", raw)
	}
	return a, nil
}

func pendingCmd() *cobra.Command {
	var action, domain string

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List plans awaiting review",
		Example: `  sift pending
  sift pending --action delete
  sift --vault pending --domain "44 - Health"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			act, err := parseActionFlag(action)
			if err != nil {
				return err
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			plans, err := a.controller.Pending(ctx, act, domain)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(plans) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No pending plans."))
				return nil
			}
			fmt.Fprintln(out, cli.PlanTable(plans))

			if act == "" && domain == "" {
				summary, err := a.store.Summary(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cli.SummaryView(summary))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "only show plans with this action")
	cmd.Flags().StringVar(&domain, "domain", "", "only show plans for this domain or area")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show one plan and its status history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			plan, err := a.store.GetPlan(ctx, args[0])
			if err != nil {
				return err
			}
			history, err := a.store.StatusHistory(ctx, plan.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderBox(plan.ID, cli.PlanCard(*plan)))
			if len(history) > 0 {
				fmt.Fprintln(out, cli.FormatTitle("History"))
				fmt.Fprintln(out, cli.HistoryTable(history))
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent plans of any status",
		Example: `  sift history
  sift history --status failed --limit 50`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			filter := service.PlanFilter{Limit: limit}
			if status != "" {
				st, ok := model.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = st
			}
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			plans, err := a.store.ListPlans(ctx, filter)
			if err != nil {
				return err
			}
			if len(plans) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No plans found."))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.PlanTable(plans))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, approved, rejected, revised, executed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of plans to show")
	return cmd
}

func cleanupCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old finished plans and expired backups",
		Long: `Removes executed, rejected, failed and revised plans older than --days.
An automatic checkpoint of the database is taken first. Backup folders
older than safety.backup_retention_days are pruned as well.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			manager, err := a.store.NewCheckpointManager()
			if err != nil {
				return fmt.Errorf("failed to create checkpoint manager: %w", err)
			}
			if _, err := manager.AutoCheckpoint(ctx, "cleanup"); err != nil {
				return fmt.Errorf("failed to checkpoint before cleanup: %w", err)
			}

			removed, err := a.store.CleanupOldPlans(ctx, time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Removed %d plans older than %d days", removed, days)))

			if retention := a.settings.Safety.BackupRetentionDays; retention > 0 {
				pruned, err := a.backups.Prune(time.Duration(retention)*24*time.Hour, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Pruned %d backup folders", pruned)))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "age in days beyond which finished plans are removed")
	return cmd
}
