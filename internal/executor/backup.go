package executor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/sift/internal/common"
)

const backupDateFormat = "2006-01-02"

// Backups copies items into dated folders before they are mutated.
type Backups struct {
	logger *slog.Logger
	root   string
}

// NewBackups creates a backup manager rooted at dir.
func NewBackups(dir string, logger *slog.Logger) *Backups {
	return &Backups{root: dir, logger: common.OrDefault(logger)}
}

// Root returns the backup directory.
func (b *Backups) Root() string {
	return b.root
}

// Save copies source into the folder for the day of at. A name clash
// within the day gets a "_HHMMSS" suffix.
func (b *Backups) Save(source string, at time.Time) (string, error) {
	dir := filepath.Join(b.root, at.Format(backupDateFormat))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := filepath.Base(source)
	dest := filepath.Join(dir, name)
	if exists(dest) {
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		dest = uniquePath(filepath.Join(dir, fmt.Sprintf("%s_%s%s", stem, at.Format("150405"), ext)))
	}

	if err := copyFile(source, dest); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", name, err)
	}
	b.logger.Debug("Backed up file", "source", source, "backup", dest)
	return dest, nil
}

// Prune removes dated folders older than retention as of now. It returns
// how many were removed.
func (b *Backups) Prune(retention time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(b.root)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read backup directory: %w", err)
	}

	cutoff := now.Add(-retention)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		day, err := time.ParseInLocation(backupDateFormat, e.Name(), now.Location())
		if err != nil {
			continue
		}
		if !day.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(b.root, e.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove backup %s: %w", e.Name(), err)
		}
		removed++
	}
	if removed > 0 {
		b.logger.Info("Pruned old backups", "count", removed, "retention", retention)
	}
	return removed, nil
}
