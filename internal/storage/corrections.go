package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

const correctionColumns = `id, original_filename, original_action, original_domain, original_subfolder,
	corrected_action, corrected_domain, corrected_subfolder, user_feedback, filename_pattern,
	keywords, times_applied, last_applied, created_at`

// Relevance weights for matching a correction against a filename.
const (
	scorePattern  = 5
	scoreKeyword  = 2
	scoreFilename = 3
)

// SaveCorrection inserts or replaces a correction by ID. An empty ID is
// assigned a fresh one.
func (s *SQLiteStorage) SaveCorrection(ctx context.Context, c *model.Correction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCorrection(c); err != nil {
		return err
	}

	if c.ID == "" {
		c.ID = uuid.New().String()[:8]
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	keywords, err := json.Marshal(nonNil(c.Keywords))
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}

	var lastApplied sql.NullTime
	if c.LastApplied != nil {
		lastApplied = sql.NullTime{Time: c.LastApplied.UTC(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO corrections (`+correctionColumns+`, keyword_search)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			original_filename = excluded.original_filename,
			original_action = excluded.original_action,
			original_domain = excluded.original_domain,
			original_subfolder = excluded.original_subfolder,
			corrected_action = excluded.corrected_action,
			corrected_domain = excluded.corrected_domain,
			corrected_subfolder = excluded.corrected_subfolder,
			user_feedback = excluded.user_feedback,
			filename_pattern = excluded.filename_pattern,
			keywords = excluded.keywords,
			keyword_search = excluded.keyword_search,
			times_applied = excluded.times_applied,
			last_applied = excluded.last_applied
	`,
		c.ID, c.OriginalFilename, nullString(string(c.OriginalAction)), nullString(c.OriginalDomain),
		nullString(c.OriginalSubfolder), string(c.CorrectedAction), nullString(c.CorrectedDomain),
		nullString(c.CorrectedSubfolder), c.UserFeedback, nullString(c.FilenamePattern),
		string(keywords), c.TimesApplied, lastApplied, c.CreatedAt.UTC(),
		keywordSearch(c),
	)
	if err != nil {
		return fmt.Errorf("failed to save correction: %w", err)
	}
	return nil
}

// GetCorrection retrieves a correction by ID.
func (s *SQLiteStorage) GetCorrection(ctx context.Context, id string) (*model.Correction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+correctionColumns+` FROM corrections WHERE id = ?`, id)
	c, err := scanCorrection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCorrectionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get correction: %w", err)
	}
	return c, nil
}

// ListCorrections returns corrections, most recent first.
func (s *SQLiteStorage) ListCorrections(ctx context.Context, limit int) ([]model.Correction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryCorrections(ctx, "", nil, limit)
}

// SearchCorrections returns corrections whose filename or keywords contain term.
func (s *SQLiteStorage) SearchCorrections(ctx context.Context, term string, limit int) ([]model.Correction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(term, "term"); err != nil {
		return nil, err
	}
	return s.queryCorrections(ctx, "WHERE keyword_search LIKE ?",
		[]any{"%" + strings.ToLower(term) + "%"}, limit)
}

func (s *SQLiteStorage) queryCorrections(ctx context.Context, where string, args []any, limit int) ([]model.Correction, error) {
	query := `SELECT ` + correctionColumns + ` FROM corrections ` + where +
		` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Correction
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// RelevantCorrections ranks corrections against a filename: a pattern match
// scores 5, each contained keyword 2, and containing the original filename
// 3. Corrections scoring zero are dropped; equal scores keep the most
// recent first.
func (s *SQLiteStorage) RelevantCorrections(ctx context.Context, filename string, limit int) ([]model.Correction, error) {
	all, err := s.ListCorrections(ctx, 0)
	if err != nil {
		return nil, err
	}

	type scored struct {
		c     model.Correction
		score int
	}
	var ranked []scored
	for _, c := range all {
		if score := RelevanceScore(c, filename); score > 0 {
			ranked = append(ranked, scored{c: c, score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]model.Correction, len(ranked))
	for i, r := range ranked {
		out[i] = r.c
	}
	return out, nil
}

// RelevanceScore scores one correction against a filename.
func RelevanceScore(c model.Correction, filename string) int {
	lower := strings.ToLower(filename)
	score := 0

	if c.FilenamePattern != "" {
		if ok, err := common.MatchRegex(c.FilenamePattern, filename); err == nil && ok {
			score += scorePattern
		}
	}
	for _, kw := range c.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			score += scoreKeyword
		}
	}
	if c.OriginalFilename != "" && strings.Contains(lower, strings.ToLower(c.OriginalFilename)) {
		score += scoreFilename
	}
	return score
}

// MarkCorrectionUsed increments the usage counter and stamps last use.
func (s *SQLiteStorage) MarkCorrectionUsed(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE corrections
		SET times_applied = times_applied + 1, last_applied = ?
		WHERE id = ?
	`, s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark correction used: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrCorrectionNotFound, id)
	}
	return nil
}

func scanCorrection(row rowScanner) (*model.Correction, error) {
	var (
		c                                    model.Correction
		origAction, origDomain, origSub      sql.NullString
		corrAction                           string
		corrDomain, corrSub, pattern, kwJSON sql.NullString
		lastApplied                          sql.NullTime
	)

	err := row.Scan(
		&c.ID, &c.OriginalFilename, &origAction, &origDomain, &origSub,
		&corrAction, &corrDomain, &corrSub, &c.UserFeedback, &pattern,
		&kwJSON, &c.TimesApplied, &lastApplied, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.OriginalAction = model.Action(origAction.String)
	c.OriginalDomain = origDomain.String
	c.OriginalSubfolder = origSub.String
	c.CorrectedAction = model.Action(corrAction)
	c.CorrectedDomain = corrDomain.String
	c.CorrectedSubfolder = corrSub.String
	c.FilenamePattern = pattern.String
	if lastApplied.Valid {
		t := lastApplied.Time
		c.LastApplied = &t
	}
	if kwJSON.Valid && kwJSON.String != "" {
		if err := json.Unmarshal([]byte(kwJSON.String), &c.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode keywords: %w", err)
		}
	}
	if len(c.Keywords) == 0 {
		c.Keywords = nil
	}
	return &c, nil
}

func keywordSearch(c *model.Correction) string {
	parts := append([]string{c.OriginalFilename}, c.Keywords...)
	return strings.ToLower(strings.Join(parts, " "))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
