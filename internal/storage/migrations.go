package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Plans and corrections",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS file_plans (
					id TEXT PRIMARY KEY,
					source_path TEXT NOT NULL,
					action TEXT NOT NULL,
					destination_path TEXT,
					category TEXT,
					domain TEXT,
					subfolder TEXT,
					suggested_name TEXT,
					confidence REAL NOT NULL DEFAULT 0,
					reasoning TEXT NOT NULL,
					classification_source TEXT NOT NULL,
					status TEXT NOT NULL DEFAULT 'pending',
					created_at DATETIME NOT NULL,
					executed_at DATETIME,
					error_message TEXT,
					user_feedback TEXT,
					original_plan_id TEXT,
					revision_count INTEGER NOT NULL DEFAULT 0,
					metadata TEXT
				)`,
				`CREATE INDEX idx_plans_status ON file_plans(status)`,
				`CREATE INDEX idx_plans_source ON file_plans(source_path)`,
				`CREATE INDEX idx_plans_created ON file_plans(created_at)`,

				`CREATE TABLE IF NOT EXISTS corrections (
					id TEXT PRIMARY KEY,
					original_filename TEXT NOT NULL,
					original_action TEXT,
					original_domain TEXT,
					original_subfolder TEXT,
					corrected_action TEXT NOT NULL,
					corrected_domain TEXT,
					corrected_subfolder TEXT,
					user_feedback TEXT NOT NULL DEFAULT '',
					filename_pattern TEXT,
					keywords TEXT,
					keyword_search TEXT,
					times_applied INTEGER NOT NULL DEFAULT 0,
					last_applied DATETIME,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_corrections_keywords ON corrections(keyword_search)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Plan status history",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS plan_status_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					plan_id TEXT NOT NULL,
					from_status TEXT,
					to_status TEXT NOT NULL,
					note TEXT,
					changed_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_history_plan ON plan_status_history(plan_id)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Checkpoint metadata",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS checkpoint_metadata (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					description TEXT,
					file_size INTEGER,
					row_counts TEXT,
					schema_version INTEGER,
					is_auto BOOLEAN DEFAULT 0,
					parent_checkpoint TEXT
				)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate applies every pending migration.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion); err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
