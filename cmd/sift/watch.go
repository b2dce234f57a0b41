package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/config"
	"github.com/Veraticus/sift/internal/watcher"
)

func watchCmd() *cobra.Command {
	var paths []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Classify new files as they appear",
		Long: `Watches watch.paths (or --path) and creates a pending plan for every new
file once it has stopped changing for watch.debounce. Plans are never
executed automatically; review them with "sift review".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if vaultMode {
				return errors.New("watch only supports the file organizer; run organize --vault instead")
			}
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := watcher.Config{Paths: a.settings.Watch.Paths, Debounce: a.settings.Watch.Debounce}
			if len(paths) > 0 {
				cfg.Paths = make([]string, 0, len(paths))
				for _, p := range paths {
					cfg.Paths = append(cfg.Paths, config.ExpandPath(p))
				}
			}

			w, err := watcher.New(cfg, a.ignorer, intakeHandler(a), a.logger)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf("Watching %d directories, press Ctrl+C to stop", len(cfg.Paths))))
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&paths, "path", nil, "directory to watch (repeatable, default watch.paths)")
	return cmd
}

// intakeHandler creates a plan for each settled file.
func intakeHandler(a *app) watcher.HandlerFunc {
	return func(ctx context.Context, path string) {
		res, err := a.intake.Run(ctx, []string{path})
		if err != nil {
			a.logger.Error("Failed to classify new file", "path", path, "error", err)
			return
		}
		for _, p := range res.Saved {
			a.logger.Info("New plan awaiting review",
				"plan_id", p.ID,
				"file", p.SourceName(),
				"action", p.Action,
				"target", p.Domain)
		}
	}
}
