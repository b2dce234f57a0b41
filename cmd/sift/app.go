package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/config"
	"github.com/Veraticus/sift/internal/engine"
	"github.com/Veraticus/sift/internal/executor"
	"github.com/Veraticus/sift/internal/extract"
	"github.com/Veraticus/sift/internal/intake"
	"github.com/Veraticus/sift/internal/llm"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/review"
	"github.com/Veraticus/sift/internal/rules"
	"github.com/Veraticus/sift/internal/storage"
)

// app bundles every component one variant needs.
type app struct {
	settings   *config.Settings
	store      *storage.SQLiteStorage
	layout     engine.Layout
	ignorer    *rules.Ignorer
	builder    *engine.Builder
	extractor  *extract.Extractor
	controller *review.Controller
	executor   *executor.Executor
	backups    *executor.Backups
	intake     *intake.Intake
	logger     *slog.Logger
	vault      bool
}

func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetViper())
}

// databasePath picks the plan database for the active variant.
func databasePath(s *config.Settings) string {
	if vaultMode {
		return s.Vault.Database
	}
	return s.Paths.Database
}

// openStore opens and migrates the active variant's plan database.
func openStore(ctx context.Context, s *config.Settings) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(databasePath(s))
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// newApp wires the classification pipeline, review controller and
// executor for the active variant.
func newApp(ctx context.Context) (*app, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, s)
	if err != nil {
		return nil, err
	}

	a := &app{settings: s, store: store, logger: slog.Default(), vault: vaultMode}

	engineCfg := engine.Config{
		AIThreshold:        s.Classification.AIThreshold,
		MaxFileSizeMB:      s.Classification.MaxFileSizeMB,
		BatchSize:          s.Classification.BatchSize,
		CorrectionExamples: s.Classification.CorrectionExamples,
		AIEnabled:          s.Classification.AIEnabled,
	}

	var (
		ruleEngine  *rules.Engine
		variant     llm.Variant
		backupDir   string
		archiveRoot string
	)
	if a.vault {
		a.layout = engine.NewNoteLayout(s.Vault.Path, s.Vault.AreasFolder, s.Vault.ArchiveFolder, s.Vault.Protected)
		a.ignorer = rules.NewIgnorer(s.Vault.IgnorePatterns, true)
		a.extractor = extract.New(extract.WithPreviewChars(s.Vault.MaxContentChars), extract.WithLogger(a.logger))
		ruleEngine = rules.NewNoteEngine()
		variant = llm.VariantVault
		engineCfg.AIThreshold = s.Vault.AIThreshold
		backupDir = s.Vault.Backups
		archiveRoot = filepath.Join(s.Vault.Path, s.Vault.ArchiveFolder)
	} else {
		a.layout = engine.NewFileLayout(s.Paths.AreasRoot, a.logger)
		a.ignorer = rules.NewIgnorer(s.Watch.IgnorePatterns, s.Watch.IgnoreHidden)
		a.extractor = extract.New(extract.WithLogger(a.logger))
		ruleEngine = rules.NewFileEngine()
		variant = llm.VariantFiles
		backupDir = s.Paths.Backups
		archiveRoot = filepath.Join(s.Paths.AreasRoot, string(model.DomainPersonal), "Archive")
	}

	opts := []engine.Option{
		engine.WithIgnorer(a.ignorer),
		engine.WithLogger(a.logger),
	}
	if oracle := newOracle(s, variant, a.logger); oracle != nil {
		opts = append(opts, engine.WithOracle(oracle))
	}
	a.builder = engine.New(engineCfg, a.layout, ruleEngine, store, opts...)

	var reviser review.Reviser
	if a.builder.HasOracle() {
		reviser = a.builder
	}
	a.controller = review.NewController(store, store, a.layout, reviser, a.facts, a.logger)

	a.backups = executor.NewBackups(backupDir, a.logger)
	a.executor = executor.New(store, executor.Config{
		ArchiveRoot: archiveRoot,
		DryRun:      s.Safety.DryRun,
		Backup:      s.Safety.BackupBeforeMove,
	},
		executor.WithBackups(a.backups),
		executor.WithTrash(executor.SystemTrash()),
		executor.WithLogger(a.logger),
	)

	a.intake = intake.New(store, a.builder, a.facts, a.logger)
	return a, nil
}

// newOracle returns nil when no client can be built; classification then
// runs on corrections and rules alone.
func newOracle(s *config.Settings, variant llm.Variant, logger *slog.Logger) *llm.Oracle {
	if !s.Classification.AIEnabled {
		return nil
	}
	client, err := llm.NewClient(llm.Config{
		Provider:       s.LLM.Provider,
		APIKey:         s.LLM.APIKey,
		Model:          s.LLM.Model,
		ClaudeCodePath: s.LLM.ClaudeCodePath,
		MaxRetries:     s.LLM.MaxRetries,
		RetryDelay:     time.Second,
		CacheTTL:       s.LLM.CacheTTL,
		Timeout:        s.LLM.Timeout,
		RateLimit:      s.LLM.RateLimit,
		MaxTokens:      s.LLM.MaxTokens,
	})
	if err != nil {
		logger.Warn("AI classification disabled", "provider", s.LLM.Provider, "error", err)
		return nil
	}
	return llm.NewOracle(client, variant,
		llm.WithLogger(logger),
		llm.WithTokenLimits(s.LLM.MaxTokens, s.LLM.BatchMaxTokens))
}

func (a *app) Close() error {
	return a.store.Close()
}

// facts extracts the facts for one candidate of the active variant.
func (a *app) facts(path string) (model.Facts, error) {
	if a.vault {
		return a.extractor.Note(path, a.settings.Vault.Path)
	}
	return a.extractor.File(path)
}

// scan lists candidates under dir: top-level files, or every note in the
// vault.
func (a *app) scan(dir string) ([]string, error) {
	if a.vault {
		return intake.ScanNotes(dir, a.ignorer, a.layout.Protected)
	}
	return intake.ScanFiles(dir, a.ignorer)
}

// defaultScanRoot is where organize looks when no path is given.
func (a *app) defaultScanRoot() string {
	if a.vault {
		return a.settings.Vault.Path
	}
	return a.settings.Paths.Scan
}

// labels are the destinations offered when editing a plan.
func (a *app) labels() []string {
	if a.vault {
		return append([]string(nil), model.AllAreas...)
	}
	out := make([]string, 0, len(model.AllDomains))
	for _, d := range model.AllDomains {
		out = append(out, string(d))
	}
	return out
}

func (a *app) prompterOptions() cli.PrompterOptions {
	var actions []model.Action
	for _, act := range model.AllActions {
		if a.layout.Allows(act) {
			actions = append(actions, act)
		}
	}
	return cli.PrompterOptions{
		Actions:   actions,
		Labels:    a.labels(),
		CanDelete: a.layout.Allows(model.ActionDelete),
		CanRevise: a.builder.HasOracle(),
	}
}

// checkpoints opens the checkpoint manager for the active database.
func checkpoints(ctx context.Context) (*storage.SQLiteStorage, *storage.CheckpointManager, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	manager, err := store.NewCheckpointManager()
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	return store, manager, nil
}
