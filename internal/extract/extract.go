// Package extract pulls cheap, bounded signal from candidate items.
// Metadata extraction is best-effort: a failure yields facts without
// metadata, never an error.
package extract

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/sift/internal/model"
)

const (
	// DefaultPreviewChars bounds the note content preview.
	DefaultPreviewChars = 2000
	// DefaultFirstPageChars bounds the document text excerpt.
	DefaultFirstPageChars = 500
	// maxReadBytes bounds how much of a note is read from disk.
	maxReadBytes = 256 * 1024
)

// Extractor builds Facts for files and notes.
type Extractor struct {
	logger         *slog.Logger
	previewChars   int
	firstPageChars int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPreviewChars sets the note preview bound.
func WithPreviewChars(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.previewChars = n
		}
	}
}

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		logger:         slog.Default(),
		previewChars:   DefaultPreviewChars,
		firstPageChars: DefaultFirstPageChars,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Basic returns filesystem facts without reading the item.
func Basic(path string) (model.Facts, error) {
	info, err := os.Stat(path)
	if err != nil {
		return model.Facts{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return model.Facts{}, fmt.Errorf("%s is a directory", path)
	}
	return model.Facts{
		Path:    path,
		Name:    info.Name(),
		Ext:     strings.ToLower(filepath.Ext(info.Name())),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// File returns facts for a loose file, with document metadata when the
// format is supported.
func (e *Extractor) File(path string) (model.Facts, error) {
	facts, err := Basic(path)
	if err != nil {
		return facts, err
	}

	if facts.Ext == ".pdf" {
		meta, err := readPDF(path, e.firstPageChars)
		if err != nil {
			e.logger.Debug("pdf metadata unavailable", "path", path, "error", err)
		} else if !meta.IsEmpty() {
			facts.Document = meta
		}
	}

	return facts, nil
}

// Note returns facts for a vault note: frontmatter, folder relative to the
// vault root, and a bounded content preview.
func (e *Extractor) Note(path, vaultRoot string) (model.Facts, error) {
	facts, err := Basic(path)
	if err != nil {
		return facts, err
	}

	meta := &model.NoteMeta{}
	if rel, err := filepath.Rel(vaultRoot, filepath.Dir(path)); err == nil && rel != "." {
		meta.Folder = filepath.ToSlash(rel)
	}

	content, err := readPrefix(path, maxReadBytes)
	if err != nil {
		e.logger.Debug("note unreadable", "path", path, "error", err)
		facts.Note = meta
		return facts, nil
	}

	fm, body := SplitFrontmatter(content)
	meta.Title = fm.Title
	meta.Category = fm.Category
	meta.Tags = fm.Tags
	meta.Preview = Preview(body, e.previewChars)
	facts.Note = meta

	return facts, nil
}

func readPrefix(path string, limit int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Preview trims body to at most maxChars runes, marking truncation with "...".
func Preview(body string, maxChars int) string {
	runes := []rune(body)
	if maxChars > 0 && len(runes) > maxChars {
		body = string(runes[:maxChars]) + "..."
	}
	return strings.TrimSpace(body)
}
