package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/config"
	"github.com/Veraticus/sift/internal/engine"
	"github.com/Veraticus/sift/internal/review"
)

var (
	cfgFile   string
	vaultMode bool
	version   = "dev"
	rootCmd   = &cobra.Command{
		Use:   "sift",
		Short: "📂 Classify, review and organize files and notes",
		Long: `sift inspects loose files (or notes in a vault), proposes where each one
belongs, lets you approve or revise the proposal, and then carries it out
with backups and collision-safe moves.

Rules and your own past corrections decide most items; the rest are sent
to an AI classifier when one is configured.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/sift/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().BoolVar(&vaultMode, "vault", false, "operate on the note vault instead of files")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(organizeCmd())
	rootCmd.AddCommand(pendingCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(reviseCmd())
	rootCmd.AddCommand(executeCmd())
	rootCmd.AddCommand(correctionsCmd())
	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(checkpointCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := explain(rootCmd.ExecuteContext(ctx))
	cancel()

	if err != nil {
		var ue *common.UserError
		if errors.As(err, &ue) {
			slog.Debug("Command failed", "error", ue.Err)
			fmt.Fprintln(os.Stderr, cli.FormatError(ue.UserMessage))
		} else {
			fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		}
		os.Exit(1)
	}
}

// explain attaches a next step to failures the user can act on.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrOracleDisabled):
		return common.NewUserError("AI classification is not configured; set ANTHROPIC_API_KEY or llm.provider", err)
	case errors.Is(err, review.ErrSourceNotFound):
		return common.NewUserError("The file behind this plan no longer exists", err)
	case errors.Is(err, review.ErrNotRevisable), errors.Is(err, review.ErrNotPending):
		return common.NewUserError("Only pending plans can be changed; check its status with `sift show`", err)
	case errors.Is(err, common.ErrNotFound):
		return common.NewUserError(err.Error(), nil)
	}
	return err
}

func initConfig(_ *cobra.Command, _ []string) error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(dir)
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SIFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func setupLogging() error {
	level, err := common.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		return err
	}
	logger, err := common.NewLogger(os.Stderr, level, viper.GetString("logging.format"))
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sift %s\n", version)
		},
	}
}
