package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/service"
)

const planColumns = `id, source_path, action, destination_path, category, domain, subfolder,
	suggested_name, confidence, reasoning, classification_source, status, created_at,
	executed_at, error_message, user_feedback, original_plan_id, revision_count, metadata`

// SavePlan inserts a new plan, or updates the stored copy of an existing one.
// A new pending or approved plan is refused while another active plan
// exists for the same source path.
func (s *SQLiteStorage) SavePlan(ctx context.Context, plan *model.Plan) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePlan(plan); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.savePlanTx(ctx, tx, plan)
	})
}

func (s *SQLiteStorage) savePlanTx(ctx context.Context, tx *sql.Tx, plan *model.Plan) error {
	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM file_plans WHERE id = ?)`, plan.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check plan existence: %w", err)
	}

	if !exists && isActive(plan.Status) {
		active, err := s.getActivePlanBySourceTx(ctx, tx, plan.SourcePath)
		if err != nil {
			return err
		}
		if active != nil {
			return fmt.Errorf("%w: %s (plan %s)", ErrActivePlanExists, plan.SourcePath, active.ID)
		}
	}

	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = s.now()
	}

	metadata, err := encodeMetadata(plan.Metadata)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO file_plans (`+planColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			action = excluded.action,
			destination_path = excluded.destination_path,
			category = excluded.category,
			domain = excluded.domain,
			subfolder = excluded.subfolder,
			suggested_name = excluded.suggested_name,
			confidence = excluded.confidence,
			reasoning = excluded.reasoning,
			classification_source = excluded.classification_source,
			error_message = excluded.error_message,
			user_feedback = excluded.user_feedback,
			metadata = excluded.metadata
	`,
		plan.ID, plan.SourcePath, string(plan.Action), nullString(plan.DestinationPath),
		nullString(string(plan.Category)), nullString(plan.Domain), nullString(plan.Subfolder),
		nullString(plan.SuggestedName), plan.Confidence, plan.Reasoning,
		string(plan.ClassificationSource), string(plan.Status), plan.CreatedAt.UTC(),
		nullTime(plan.ExecutedAt), nullString(plan.ErrorMessage), nullString(plan.UserFeedback),
		nullString(plan.OriginalPlanID), plan.RevisionCount, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}

	if !exists {
		return s.recordTransitionTx(ctx, tx, plan.ID, "", plan.Status, "created")
	}
	return nil
}

// SaveRevision stores a revised plan and flips the original to revised in
// one transaction.
func (s *SQLiteStorage) SaveRevision(ctx context.Context, originalID string, revised *model.Plan) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(originalID, "originalID"); err != nil {
		return err
	}
	if err := validatePlan(revised); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		note := "revised as " + revised.ID
		if err := s.transitionTx(ctx, tx, originalID, model.StatusRevised, note, nil); err != nil {
			return err
		}
		return s.savePlanTx(ctx, tx, revised)
	})
}

// GetPlan retrieves a plan by ID.
func (s *SQLiteStorage) GetPlan(ctx context.Context, id string) (*model.Plan, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getPlanTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getPlanTx(ctx context.Context, q queryable, id string) (*model.Plan, error) {
	row := q.QueryRowContext(ctx, `SELECT `+planColumns+` FROM file_plans WHERE id = ?`, id)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// GetActivePlanBySource returns the pending or approved plan for a source
// path, or nil when there is none.
func (s *SQLiteStorage) GetActivePlanBySource(ctx context.Context, sourcePath string) (*model.Plan, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sourcePath, "sourcePath"); err != nil {
		return nil, err
	}
	return s.getActivePlanBySourceTx(ctx, s.db, sourcePath)
}

func (s *SQLiteStorage) getActivePlanBySourceTx(ctx context.Context, q queryable, sourcePath string) (*model.Plan, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+planColumns+`
		FROM file_plans
		WHERE source_path = ? AND status IN (?, ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, sourcePath, string(model.StatusPending), string(model.StatusApproved))

	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active plan: %w", err)
	}
	return plan, nil
}

// ListPlans returns plans matching the filter, newest first.
func (s *SQLiteStorage) ListPlans(ctx context.Context, filter service.PlanFilter) ([]model.Plan, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		if _, ok := model.ParseStatus(string(filter.Status)); !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
		}
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(filter.Action))
	}
	if filter.Domain != "" {
		where = append(where, "domain = ? COLLATE NOCASE")
		args = append(args, filter.Domain)
	}

	query := `SELECT ` + planColumns + ` FROM file_plans`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var plans []model.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

// UpdatePlanStatus moves a plan along the lifecycle and records the change.
func (s *SQLiteStorage) UpdatePlanStatus(ctx context.Context, id string, to model.PlanStatus, note string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if _, ok := model.ParseStatus(string(to)); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.transitionTx(ctx, tx, id, to, note, nil)
	})
}

// MarkExecuted moves an approved plan to executed.
func (s *SQLiteStorage) MarkExecuted(ctx context.Context, id string, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.transitionTx(ctx, tx, id, model.StatusExecuted, "", func() error {
			_, err := tx.ExecContext(ctx,
				`UPDATE file_plans SET executed_at = ?, error_message = NULL WHERE id = ?`, at.UTC(), id)
			return err
		})
	})
}

// MarkFailed moves an approved plan to failed with a diagnostic message.
func (s *SQLiteStorage) MarkFailed(ctx context.Context, id string, message string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(message, "message"); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.transitionTx(ctx, tx, id, model.StatusFailed, message, func() error {
			_, err := tx.ExecContext(ctx,
				`UPDATE file_plans SET error_message = ? WHERE id = ?`, message, id)
			return err
		})
	})
}

func (s *SQLiteStorage) transitionTx(ctx context.Context, tx *sql.Tx, id string, to model.PlanStatus, note string, extra func() error) error {
	var current string
	err := tx.QueryRowContext(ctx, `SELECT status FROM file_plans WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read plan status: %w", err)
	}

	from := model.PlanStatus(current)
	if !model.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s for plan %s", ErrInvalidTransition, from, to, id)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE file_plans SET status = ? WHERE id = ?`, string(to), id); err != nil {
		return fmt.Errorf("failed to update plan status: %w", err)
	}
	if extra != nil {
		if err := extra(); err != nil {
			return fmt.Errorf("failed to update plan: %w", err)
		}
	}
	return s.recordTransitionTx(ctx, tx, id, from, to, note)
}

func (s *SQLiteStorage) recordTransitionTx(ctx context.Context, tx *sql.Tx, id string, from, to model.PlanStatus, note string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO plan_status_history (plan_id, from_status, to_status, note, changed_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, nullString(string(from)), string(to), nullString(note), s.now())
	if err != nil {
		return fmt.Errorf("failed to record status change: %w", err)
	}
	return nil
}

// UpdatePlanClassification rewrites the classification of a pending plan.
func (s *SQLiteStorage) UpdatePlanClassification(ctx context.Context, plan *model.Plan) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePlan(plan); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getPlanTx(ctx, tx, plan.ID)
		if err != nil {
			return err
		}
		if current.Status != model.StatusPending {
			return fmt.Errorf("%w: %s is %s", ErrPlanNotEditable, plan.ID, current.Status)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE file_plans SET
				action = ?, destination_path = ?, category = ?, domain = ?, subfolder = ?,
				suggested_name = ?, confidence = ?, reasoning = ?
			WHERE id = ?
		`, string(plan.Action), nullString(plan.DestinationPath), nullString(string(plan.Category)),
			nullString(plan.Domain), nullString(plan.Subfolder), nullString(plan.SuggestedName),
			plan.Confidence, plan.Reasoning, plan.ID)
		if err != nil {
			return fmt.Errorf("failed to update plan classification: %w", err)
		}
		return nil
	})
}

// StatusHistory returns every recorded transition of a plan, oldest first.
func (s *SQLiteStorage) StatusHistory(ctx context.Context, id string) ([]model.StatusChange, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT plan_id, from_status, to_status, note, changed_at
		FROM plan_status_history
		WHERE plan_id = ?
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var changes []model.StatusChange
	for rows.Next() {
		var (
			change  model.StatusChange
			from    sql.NullString
			to      string
			note    sql.NullString
			changed time.Time
		)
		if err := rows.Scan(&change.PlanID, &from, &to, &note, &changed); err != nil {
			return nil, fmt.Errorf("failed to scan status change: %w", err)
		}
		change.From = model.PlanStatus(from.String)
		change.To = model.PlanStatus(to)
		change.Note = note.String
		change.ChangedAt = changed
		changes = append(changes, change)
	}
	return changes, rows.Err()
}

// Summary aggregates pending plans. Freed bytes are estimated from the
// current size of each pending delete's source.
func (s *SQLiteStorage) Summary(ctx context.Context) (*model.Summary, error) {
	pending, err := s.ListPlans(ctx, service.PlanFilter{Status: model.StatusPending})
	if err != nil {
		return nil, err
	}

	summary := &model.Summary{
		ByAction:   make(map[model.Action]int),
		ByDomain:   make(map[string]int),
		ByCategory: make(map[model.Category]int),
	}
	for _, p := range pending {
		summary.Total++
		summary.ByAction[p.Action]++
		if p.Domain != "" {
			summary.ByDomain[p.Domain]++
		}
		if p.Category != "" {
			summary.ByCategory[p.Category]++
		}
		if p.Action == model.ActionDelete {
			if info, statErr := os.Stat(p.SourcePath); statErr == nil {
				summary.EstimatedFreedBytes += info.Size()
			}
		}
	}
	return summary, nil
}

// CleanupOldPlans deletes finished plans created more than olderThan ago,
// along with their status history. Pending and approved plans are kept.
func (s *SQLiteStorage) CleanupOldPlans(ctx context.Context, olderThan time.Duration) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-olderThan)

	var deleted int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, created_at FROM file_plans
			WHERE status IN (?, ?, ?, ?)
		`, string(model.StatusExecuted), string(model.StatusRejected),
			string(model.StatusFailed), string(model.StatusRevised))
		if err != nil {
			return fmt.Errorf("failed to query finished plans: %w", err)
		}

		var ids []string
		for rows.Next() {
			var (
				id      string
				created time.Time
			)
			if err := rows.Scan(&id, &created); err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan plan: %w", err)
			}
			if created.Before(cutoff) {
				ids = append(ids, id)
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}

		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM plan_status_history WHERE plan_id = ?`, id); err != nil {
				return fmt.Errorf("failed to delete history for %s: %w", id, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM file_plans WHERE id = ?`, id); err != nil {
				return fmt.Errorf("failed to delete plan %s: %w", id, err)
			}
		}
		deleted = len(ids)
		return nil
	})
	return deleted, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*model.Plan, error) {
	var (
		plan                                         model.Plan
		action, source, status                       string
		dest, category, domain, subfolder, suggested sql.NullString
		errMsg, feedback, original, metadata         sql.NullString
		executedAt                                   sql.NullTime
	)

	err := row.Scan(
		&plan.ID, &plan.SourcePath, &action, &dest, &category, &domain, &subfolder,
		&suggested, &plan.Confidence, &plan.Reasoning, &source, &status, &plan.CreatedAt,
		&executedAt, &errMsg, &feedback, &original, &plan.RevisionCount, &metadata,
	)
	if err != nil {
		return nil, err
	}

	plan.Action = model.Action(action)
	plan.ClassificationSource = model.ClassificationSource(source)
	plan.Status = model.PlanStatus(status)
	plan.DestinationPath = dest.String
	plan.Category = model.Category(category.String)
	plan.Domain = domain.String
	plan.Subfolder = subfolder.String
	plan.SuggestedName = suggested.String
	plan.ErrorMessage = errMsg.String
	plan.UserFeedback = feedback.String
	plan.OriginalPlanID = original.String
	if executedAt.Valid {
		t := executedAt.Time
		plan.ExecutedAt = &t
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &plan.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode plan metadata: %w", err)
		}
	}

	return &plan, nil
}

func encodeMetadata(m model.PlanMetadata) (sql.NullString, error) {
	if m.IsZero() {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode plan metadata: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func isActive(s model.PlanStatus) bool {
	return s == model.StatusPending || s == model.StatusApproved
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
