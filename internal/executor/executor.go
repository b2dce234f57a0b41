// Package executor applies approved plans to the filesystem with backups,
// collision-free destinations and trash-based deletion.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/service"
)

// MissingSourceMessage is recorded when a plan's source has vanished.
const MissingSourceMessage = "Source file no longer exists"

// ErrNotApproved is returned when executing a plan that is not approved.
var ErrNotApproved = errors.New("plan is not approved")

// Config controls the execution safety nets.
type Config struct {
	// ArchiveRoot receives archived items that carry no destination.
	ArchiveRoot string
	DryRun      bool
	Backup      bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithTrash overrides the trash implementation.
func WithTrash(t Trasher) Option {
	return func(e *Executor) { e.trash = t }
}

// WithBackups enables backups into b when Config.Backup is set.
func WithBackups(b *Backups) Option {
	return func(e *Executor) { e.backups = b }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = common.OrDefault(l) }
}

// WithClock overrides the execution timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// Executor runs approved plans one at a time.
type Executor struct {
	plans   service.PlanStore
	trash   Trasher
	backups *Backups
	now     func() time.Time
	logger  *slog.Logger
	cfg     Config
}

// New creates an executor.
func New(plans service.PlanStore, cfg Config, opts ...Option) *Executor {
	e := &Executor{
		plans:  plans,
		cfg:    cfg,
		trash:  SystemTrash(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DryRun reports whether filesystem changes are suppressed.
func (e *Executor) DryRun() bool {
	return e.cfg.DryRun
}

// ExecuteAllApproved runs every approved plan. A failing plan never stops
// the rest; each outcome is reported in order. progress, when non-nil, is
// called after every plan.
func (e *Executor) ExecuteAllApproved(ctx context.Context, progress func(model.ExecutionResult)) ([]model.ExecutionResult, error) {
	plans, err := e.plans.ListPlans(ctx, service.PlanFilter{Status: model.StatusApproved})
	if err != nil {
		return nil, fmt.Errorf("failed to list approved plans: %w", err)
	}
	return e.run(ctx, plans, progress)
}

// ExecuteIDs runs the listed plans. Plans that are missing or not approved
// are reported as failed results without touching their status.
func (e *Executor) ExecuteIDs(ctx context.Context, ids []string, progress func(model.ExecutionResult)) ([]model.ExecutionResult, error) {
	plans := make([]model.Plan, 0, len(ids))
	var results []model.ExecutionResult
	for _, id := range ids {
		p, err := e.plans.GetPlan(ctx, id)
		if err != nil {
			results = append(results, model.ExecutionResult{PlanID: id, Message: err.Error()})
			continue
		}
		if p.Status != model.StatusApproved {
			results = append(results, model.ExecutionResult{
				PlanID:  id,
				Message: fmt.Sprintf("%v: %s", ErrNotApproved, p.Status),
			})
			continue
		}
		plans = append(plans, *p)
	}
	ran, err := e.run(ctx, plans, progress)
	return append(results, ran...), err
}

func (e *Executor) run(ctx context.Context, plans []model.Plan, progress func(model.ExecutionResult)) ([]model.ExecutionResult, error) {
	results := make([]model.ExecutionResult, 0, len(plans))
	for i := range plans {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := e.Execute(ctx, &plans[i])
		results = append(results, res)
		if progress != nil {
			progress(res)
		}
	}
	return results, nil
}

// Execute applies one approved plan and records the outcome. In dry-run
// mode the plan stays approved.
func (e *Executor) Execute(ctx context.Context, plan *model.Plan) model.ExecutionResult {
	if plan.Status != model.StatusApproved {
		return model.ExecutionResult{
			PlanID:  plan.ID,
			Message: fmt.Sprintf("%v: %s", ErrNotApproved, plan.Status),
		}
	}

	if !exists(plan.SourcePath) {
		return e.fail(ctx, plan, MissingSourceMessage)
	}

	msg, err := e.apply(ctx, plan)
	if err != nil {
		return e.fail(ctx, plan, err.Error())
	}

	if e.cfg.DryRun {
		return model.ExecutionResult{PlanID: plan.ID, Success: true, Message: msg}
	}
	if err := e.plans.MarkExecuted(ctx, plan.ID, e.now()); err != nil {
		e.logger.Error("Failed to record execution", "plan_id", plan.ID, "error", err)
		return model.ExecutionResult{PlanID: plan.ID, Message: fmt.Sprintf("%s, but recording failed: %v", msg, err)}
	}
	return model.ExecutionResult{PlanID: plan.ID, Success: true, Message: msg}
}

func (e *Executor) apply(ctx context.Context, plan *model.Plan) (string, error) {
	switch plan.Action {
	case model.ActionSkip:
		return "Skipped as requested", nil
	case model.ActionMove:
		if plan.DestinationPath == "" {
			return "", errors.New("no destination specified")
		}
		return e.relocate(plan, plan.DestinationPath, "Moved")
	case model.ActionArchive:
		dest := plan.DestinationPath
		if dest == "" {
			if e.cfg.ArchiveRoot == "" {
				return "", errors.New("no archive location configured")
			}
			dest = filepath.Join(e.cfg.ArchiveRoot, plan.TargetName())
		}
		return e.relocate(plan, dest, "Archived")
	case model.ActionRename:
		if plan.SuggestedName == "" {
			return "", errors.New("no suggested name provided")
		}
		return e.relocate(plan, filepath.Join(filepath.Dir(plan.SourcePath), plan.SuggestedName), "Renamed")
	case model.ActionDelete:
		return e.remove(ctx, plan)
	default:
		return "", fmt.Errorf("unknown action: %s", plan.Action)
	}
}

func (e *Executor) relocate(plan *model.Plan, dest, verb string) (string, error) {
	dest = uniquePath(dest)
	if e.cfg.DryRun {
		e.logger.Info("[dry-run] "+verb, "plan_id", plan.ID, "source", plan.SourcePath, "destination", dest)
		return fmt.Sprintf("[dry-run] %s to %s", verb, dest), nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", fmt.Errorf("failed to create destination directory: %w", err)
	}
	if err := e.backup(plan.SourcePath); err != nil {
		return "", err
	}
	if err := moveFile(plan.SourcePath, dest); err != nil {
		return "", err
	}
	e.logger.Info(verb, "plan_id", plan.ID, "source", plan.SourcePath, "destination", dest)
	return fmt.Sprintf("%s to %s", verb, dest), nil
}

func (e *Executor) remove(ctx context.Context, plan *model.Plan) (string, error) {
	if e.cfg.DryRun {
		e.logger.Info("[dry-run] Deleted", "plan_id", plan.ID, "source", plan.SourcePath)
		return "[dry-run] Deleted (moved to Trash)", nil
	}
	if err := e.backup(plan.SourcePath); err != nil {
		return "", err
	}
	if err := e.trash.Trash(ctx, plan.SourcePath); err != nil {
		return "", err
	}
	e.logger.Info("Deleted", "plan_id", plan.ID, "source", plan.SourcePath)
	return "Deleted (moved to Trash)", nil
}

func (e *Executor) backup(source string) error {
	if !e.cfg.Backup || e.backups == nil {
		return nil
	}
	info, err := os.Stat(source)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}
	_, err = e.backups.Save(source, e.now())
	return err
}

func (e *Executor) fail(ctx context.Context, plan *model.Plan, msg string) model.ExecutionResult {
	e.logger.Error("Failed to execute plan", "plan_id", plan.ID, "error", msg)
	if e.cfg.DryRun {
		return model.ExecutionResult{PlanID: plan.ID, Message: msg}
	}
	if err := e.plans.MarkFailed(ctx, plan.ID, msg); err != nil {
		e.logger.Error("Failed to record failure", "plan_id", plan.ID, "error", err)
	}
	return model.ExecutionResult{PlanID: plan.ID, Message: msg}
}
