package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Veraticus/sift/internal/cli"
)

func checkpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage plan database checkpoints",
		Long: `Create, list, restore, and delete snapshots of the plan database.

Checkpoints capture plans, corrections and status history. They do not
undo filesystem changes; use them to roll back bookkeeping, for example
after an accidental bulk approval.`,
		Example: `  # Snapshot before a big organize run
  sift checkpoint create --tag before-cleanup

  # List all checkpoints
  sift checkpoint list

  # Restore from a checkpoint
  sift checkpoint restore before-cleanup`,
	}

	cmd.AddCommand(createCheckpointCmd())
	cmd.AddCommand(listCheckpointsCmd())
	cmd.AddCommand(restoreCheckpointCmd())
	cmd.AddCommand(deleteCheckpointCmd())
	return cmd
}

func createCheckpointCmd() *cobra.Command {
	var tag, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, manager, err := checkpoints(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := manager.Create(ctx, tag, description)
			if err != nil {
				return fmt.Errorf("failed to create checkpoint: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Created checkpoint %s (%s)\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(info.ID),
				cli.FormatSize(info.FileSize))
			if info.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  Description: %s\n", info.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "checkpoint name (generated when empty)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "description of the checkpoint")
	return cmd
}

func listCheckpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all checkpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, manager, err := checkpoints(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := manager.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list checkpoints: %w", err)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No checkpoints found."))
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, cp := range list {
				kind := "manual"
				if cp.IsAuto {
					kind = "auto"
				}
				rows = append(rows, []string{
					cp.ID,
					humanize.Time(cp.CreatedAt),
					cli.FormatSize(cp.FileSize),
					strconv.Itoa(cp.Plans),
					strconv.Itoa(cp.Corrections),
					kind,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.Table([]string{"NAME", "CREATED", "SIZE", "PLANS", "CORRECTIONS", "TYPE"}, rows))
			return nil
		},
	}
}

func restoreCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <checkpoint-id>",
		Short: "Restore the plan database from a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			store, manager, err := checkpoints(ctx)
			if err != nil {
				return err
			}
			// Restore closes the connection itself.
			defer store.Close()

			info, err := manager.Info(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get checkpoint info: %w", err)
			}

			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "%s This will replace your plan database with checkpoint %s.\n",
					cli.WarningStyle.Render(cli.WarningIcon),
					cli.InfoStyle.Render(id))
				fmt.Fprintf(cmd.OutOrStdout(), "  Created: %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
				if info.Description != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "  Description: %s\n", info.Description)
				}
				ok, err := confirm(cmd, "Continue?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("Restore cancelled."))
					return nil
				}
			}

			if err := manager.Restore(ctx, id); err != nil {
				return fmt.Errorf("failed to restore checkpoint: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Restored from checkpoint %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(id))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

func deleteCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <checkpoint-id>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			store, manager, err := checkpoints(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := manager.Info(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to get checkpoint info: %w", err)
			}

			if !force {
				fmt.Fprintf(cmd.OutOrStdout(), "%s This will permanently delete checkpoint %s (%s).\n",
					cli.WarningStyle.Render(cli.WarningIcon),
					cli.InfoStyle.Render(id),
					cli.FormatSize(info.FileSize))
				ok, err := confirm(cmd, "Continue?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("Deletion cancelled."))
					return nil
				}
			}

			if err := manager.Delete(ctx, id); err != nil {
				return fmt.Errorf("failed to delete checkpoint: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted checkpoint %s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(id))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation prompt")
	return cmd
}

// confirm asks a y/N question on the command's streams. End of input
// counts as no.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprint(cmd.OutOrStdout(), cli.FormatPrompt(question+" (y/N) "))
	answer, err := cli.NewLineReader(cmd.InOrStdin()).ReadLine(cmd.Context())
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}
