package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/model"
)

func correctionsCmd() *cobra.Command {
	var (
		search string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "corrections",
		Short: "List learned corrections",
		Long: `Shows what sift has learned from revisions. Corrections are consulted
before the built-in rules, so a learned preference always wins.`,
		Example: `  sift corrections
  sift corrections --search invoice`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var corrections []model.Correction
			if search != "" {
				corrections, err = a.store.SearchCorrections(ctx, search, limit)
			} else {
				corrections, err = a.store.ListCorrections(ctx, limit)
			}
			if err != nil {
				return err
			}

			if len(corrections) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No corrections learned yet."))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.CorrectionTable(corrections))
			return nil
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "only show corrections matching this term")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of corrections to show")
	return cmd
}
