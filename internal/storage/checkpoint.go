package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Checkpoint errors.
var (
	ErrCheckpointNotFound  = errors.New("checkpoint not found")
	ErrCheckpointCorrupted = errors.New("checkpoint integrity check failed")
	ErrCheckpointExists    = errors.New("checkpoint already exists")
	ErrInvalidCheckpoint   = errors.New("invalid checkpoint name")
	ErrEphemeralDatabase   = errors.New("in-memory databases cannot be checkpointed")
)

// DefaultAutoCheckpoints is how many automatic checkpoints are retained.
const DefaultAutoCheckpoints = 5

// countedTables are the tables summarized in checkpoint metadata.
var countedTables = []string{"file_plans", "corrections", "plan_status_history"}

// CheckpointManager snapshots the plan database so an execution run can
// be rolled back at the bookkeeping level.
type CheckpointManager struct {
	db       *sql.DB
	now      func() time.Time
	dbPath   string
	dir      string
	keepAuto int
}

// CheckpointMetadata is persisted next to each snapshot.
type CheckpointMetadata struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

// CheckpointInfo summarizes a checkpoint for listing.
type CheckpointInfo struct {
	CreatedAt     time.Time
	ID            string
	Description   string
	FileSize      int64
	Plans         int
	Corrections   int
	Transitions   int
	SchemaVersion int
	IsAuto        bool
}

func (m CheckpointMetadata) info() CheckpointInfo {
	return CheckpointInfo{
		ID:            m.ID,
		CreatedAt:     m.CreatedAt,
		Description:   m.Description,
		FileSize:      m.FileSize,
		Plans:         m.RowCounts["file_plans"],
		Corrections:   m.RowCounts["corrections"],
		Transitions:   m.RowCounts["plan_status_history"],
		SchemaVersion: m.SchemaVersion,
		IsAuto:        m.IsAuto,
	}
}

// NewCheckpointManager stores checkpoints in a "checkpoints" directory
// beside the database file.
func NewCheckpointManager(db *sql.DB, dbPath string) (*CheckpointManager, error) {
	if dbPath == ":memory:" {
		return nil, ErrEphemeralDatabase
	}

	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	dir := filepath.Join(filepath.Dir(abs), "checkpoints")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &CheckpointManager{
		db:       db,
		dbPath:   abs,
		dir:      dir,
		keepAuto: DefaultAutoCheckpoints,
		now:      time.Now,
	}, nil
}

// Dir returns the checkpoint directory.
func (cm *CheckpointManager) Dir() string {
	return cm.dir
}

// Create snapshots the database under name. An empty name is generated
// from the current time.
func (cm *CheckpointManager) Create(ctx context.Context, name, description string) (*CheckpointInfo, error) {
	return cm.create(ctx, name, description, false)
}

// AutoCheckpoint snapshots the database before an operation and prunes
// older automatic checkpoints.
func (cm *CheckpointManager) AutoCheckpoint(ctx context.Context, operation string) (*CheckpointInfo, error) {
	name := fmt.Sprintf("auto-%s-%s", operation, cm.now().Format("2006-01-02-150405"))
	info, err := cm.create(ctx, name, "Automatic checkpoint before "+operation, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create auto-checkpoint: %w", err)
	}

	if err := cm.pruneAuto(ctx); err != nil {
		slog.Warn("Failed to prune auto-checkpoints", "error", err)
	}
	return info, nil
}

func (cm *CheckpointManager) create(ctx context.Context, name, description string, auto bool) (*CheckpointInfo, error) {
	if name == "" {
		name = "checkpoint-" + cm.now().Format("2006-01-02-150405")
	}
	if err := validateCheckpointName(name); err != nil {
		return nil, err
	}

	snapshot := cm.snapshotPath(name)
	if _, err := os.Stat(snapshot); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointExists, name)
	}

	var version int
	if err := cm.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	counts := cm.rowCounts(ctx)

	if err := cm.backup(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to backup database: %w", err)
	}

	stat, err := os.Stat(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}

	meta := CheckpointMetadata{
		ID:            name,
		CreatedAt:     cm.now(),
		Description:   description,
		FileSize:      stat.Size(),
		RowCounts:     counts,
		SchemaVersion: version,
		IsAuto:        auto,
	}

	if err := writeMetadata(cm.metadataPath(name), meta); err != nil {
		if rmErr := os.Remove(snapshot); rmErr != nil {
			slog.Error("Failed to remove checkpoint after metadata failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	if err := cm.recordMetadata(ctx, meta); err != nil {
		slog.Warn("Failed to record checkpoint metadata in database", "error", err)
	}

	info := meta.info()
	return &info, nil
}

// List returns all checkpoints, newest first.
func (cm *CheckpointManager) List(_ context.Context) ([]CheckpointInfo, error) {
	entries, err := os.ReadDir(cm.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	var out []CheckpointInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		meta, err := readMetadata(filepath.Join(cm.dir, entry.Name()))
		if err != nil {
			slog.Debug("Skipping unreadable checkpoint metadata", "file", entry.Name(), "error", err)
			continue
		}
		out = append(out, meta.info())
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Info returns metadata for one checkpoint.
func (cm *CheckpointManager) Info(_ context.Context, name string) (*CheckpointInfo, error) {
	if err := validateCheckpointName(name); err != nil {
		return nil, err
	}
	meta, err := readMetadata(cm.metadataPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint metadata: %w", err)
	}
	info := meta.info()
	return &info, nil
}

// Restore replaces the database file with a checkpoint. The manager's
// connection is closed; callers must reopen storage afterwards.
func (cm *CheckpointManager) Restore(_ context.Context, name string) error {
	if err := validateCheckpointName(name); err != nil {
		return err
	}

	snapshot := cm.snapshotPath(name)
	if _, err := os.Stat(snapshot); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrCheckpointNotFound, name)
		}
		return fmt.Errorf("failed to access checkpoint: %w", err)
	}

	if err := verifyIntegrity(snapshot); err != nil {
		return fmt.Errorf("%w: %w", ErrCheckpointCorrupted, err)
	}

	if err := cm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	// Stale WAL files would be replayed over the restored snapshot.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(cm.dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to remove database sidecar", "file", cm.dbPath+suffix, "error", err)
		}
	}

	rollback := cm.dbPath + ".restore-backup"
	if err := copyFile(cm.dbPath, rollback); err != nil {
		return fmt.Errorf("failed to backup current database: %w", err)
	}

	if err := copyFile(snapshot, cm.dbPath); err != nil {
		if restoreErr := copyFile(rollback, cm.dbPath); restoreErr != nil {
			slog.Error("Failed to roll back after restore failure", "error", restoreErr)
		}
		return fmt.Errorf("failed to restore checkpoint: %w", err)
	}

	if err := os.Remove(rollback); err != nil {
		slog.Warn("Failed to remove restore backup", "error", err)
	}
	return nil
}

// Delete removes a checkpoint and its metadata.
func (cm *CheckpointManager) Delete(ctx context.Context, name string) error {
	if err := validateCheckpointName(name); err != nil {
		return err
	}

	snapshot := cm.snapshotPath(name)
	if err := os.Remove(snapshot); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrCheckpointNotFound, name)
		}
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}

	if err := os.Remove(cm.metadataPath(name)); err != nil {
		slog.Debug("Failed to remove checkpoint metadata file", "name", name, "error", err)
	}
	if _, err := cm.db.ExecContext(ctx, "DELETE FROM checkpoint_metadata WHERE id = ?", name); err != nil {
		slog.Debug("Failed to remove checkpoint metadata row", "name", name, "error", err)
	}
	return nil
}

func (cm *CheckpointManager) pruneAuto(ctx context.Context) error {
	all, err := cm.List(ctx)
	if err != nil {
		return err
	}

	kept := 0
	for _, cp := range all {
		if !cp.IsAuto {
			continue
		}
		kept++
		if kept <= cm.keepAuto {
			continue
		}
		if err := cm.Delete(ctx, cp.ID); err != nil {
			slog.Debug("Failed to delete old auto-checkpoint", "name", cp.ID, "error", err)
		}
	}
	return nil
}

func (cm *CheckpointManager) rowCounts(ctx context.Context) map[string]int {
	counts := make(map[string]int, len(countedTables))
	for _, table := range countedTables {
		var n int
		// #nosec G202 - table names come from a fixed list
		if err := cm.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			slog.Debug("Failed to count rows", "table", table, "error", err)
		}
		counts[table] = n
	}
	return counts
}

func (cm *CheckpointManager) backup(ctx context.Context, dest string) error {
	if _, err := cm.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	if strings.ContainsAny(dest, `'";`) {
		return fmt.Errorf("%w: unsupported characters in %s", ErrInvalidCheckpoint, dest)
	}
	// #nosec G201 - dest is validated above
	if _, err := cm.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		slog.Debug("VACUUM INTO failed, copying file instead", "error", err)
		return copyFile(cm.dbPath, dest)
	}
	return nil
}

func (cm *CheckpointManager) recordMetadata(ctx context.Context, meta CheckpointMetadata) error {
	counts, err := json.Marshal(meta.RowCounts)
	if err != nil {
		return err
	}
	_, err = cm.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO checkpoint_metadata
		(id, created_at, description, file_size, row_counts, schema_version, is_auto)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, meta.ID, meta.CreatedAt.UTC(), meta.Description, meta.FileSize, string(counts),
		meta.SchemaVersion, meta.IsAuto)
	return err
}

func (cm *CheckpointManager) snapshotPath(name string) string {
	return filepath.Join(cm.dir, name+".db")
}

func (cm *CheckpointManager) metadataPath(name string) string {
	return filepath.Join(cm.dir, name+".meta.json")
}

func validateCheckpointName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidCheckpoint, name)
	}
	return nil
}

func writeMetadata(path string, meta CheckpointMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readMetadata(path string) (*CheckpointMetadata, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is built from a validated name
	if err != nil {
		return nil, err
	}
	var meta CheckpointMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check reported %s", result)
	}
	return nil
}

// copyFile copies src to dst through a temporary file and rename.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src) // #nosec G304 - internal paths only
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp) // #nosec G304 - internal paths only
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
