// Package review applies human decisions to pending plans and runs the
// revision flow that turns feedback into learned corrections.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/engine"
	"github.com/Veraticus/sift/internal/llm"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/service"
)

// Review errors.
var (
	ErrNotRevisable   = errors.New("plan cannot be revised")
	ErrNotPending     = errors.New("plan is not pending")
	ErrInvalidEdit    = errors.New("invalid edit")
	ErrSourceNotFound = errors.New("source no longer exists")
)

// Reviser produces revised plans and pattern generalizations.
type Reviser interface {
	Revise(ctx context.Context, facts model.Facts, original model.Plan, feedback string) (model.Plan, error)
	ExtractPattern(ctx context.Context, c model.Correction) (llm.Pattern, error)
}

// CorrectionRecorder persists learned corrections.
type CorrectionRecorder interface {
	SaveCorrection(ctx context.Context, c *model.Correction) error
}

// FactSource extracts facts for an item on disk. It fails when the item
// no longer exists.
type FactSource func(path string) (model.Facts, error)

// Edit is a manual reclassification.
type Edit struct {
	Action    model.Action
	Domain    string
	Subfolder string
}

// Controller applies review decisions through the plan store.
type Controller struct {
	plans       service.PlanStore
	corrections CorrectionRecorder
	reviser     Reviser
	layout      engine.Layout
	facts       FactSource
	logger      *slog.Logger
}

// NewController creates a review controller. reviser and facts may be nil
// when revision is unavailable.
func NewController(plans service.PlanStore, corrections CorrectionRecorder, layout engine.Layout, reviser Reviser, facts FactSource, logger *slog.Logger) *Controller {
	return &Controller{
		plans:       plans,
		corrections: corrections,
		layout:      layout,
		reviser:     reviser,
		facts:       facts,
		logger:      common.OrDefault(logger),
	}
}

// Pending lists pending plans, optionally narrowed by action and domain.
func (c *Controller) Pending(ctx context.Context, action model.Action, domain string) ([]model.Plan, error) {
	return c.plans.ListPlans(ctx, service.PlanFilter{
		Status: model.StatusPending,
		Action: action,
		Domain: domain,
	})
}

// Approve approves a plan as-is.
func (c *Controller) Approve(ctx context.Context, id string) error {
	return c.plans.UpdatePlanStatus(ctx, id, model.StatusApproved, "approved")
}

// Reject leaves the item untouched for good.
func (c *Controller) Reject(ctx context.Context, id string) error {
	return c.plans.UpdatePlanStatus(ctx, id, model.StatusRejected, "rejected")
}

// Defer leaves the plan pending.
func (c *Controller) Defer(_ context.Context, id string) error {
	c.logger.Debug("Plan deferred", "plan_id", id)
	return nil
}

// ForceDelete turns a plan into an approved delete, clearing its target.
func (c *Controller) ForceDelete(ctx context.Context, id string) error {
	plan, err := c.pending(ctx, id)
	if err != nil {
		return err
	}
	if !c.layout.Allows(model.ActionDelete) {
		return fmt.Errorf("%w: delete is not available here", ErrInvalidEdit)
	}

	plan.Action = model.ActionDelete
	plan.Domain = ""
	plan.Subfolder = ""
	plan.SuggestedName = ""
	plan.DestinationPath = ""
	plan.Reasoning = "Changed to delete during review"
	if err := c.plans.UpdatePlanClassification(ctx, plan); err != nil {
		return err
	}
	return c.plans.UpdatePlanStatus(ctx, id, model.StatusApproved, "changed to delete")
}

// Edit reclassifies a plan by hand, recomputes its destination and
// approves it.
func (c *Controller) Edit(ctx context.Context, id string, e Edit) (*model.Plan, error) {
	plan, err := c.pending(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.layout.Allows(e.Action) {
		return nil, fmt.Errorf("%w: action %q", ErrInvalidEdit, e.Action)
	}

	domain := ""
	if e.Domain != "" {
		domain = c.layout.ResolveLabel(e.Domain)
	}
	if e.Action == model.ActionMove && domain == "" {
		return nil, fmt.Errorf("%w: move needs a domain", ErrInvalidEdit)
	}
	if e.Action == model.ActionRename && plan.SuggestedName == "" {
		return nil, fmt.Errorf("%w: rename needs a suggested name", ErrInvalidEdit)
	}

	plan.Action = e.Action
	plan.Domain = domain
	plan.Subfolder = e.Subfolder
	plan.Confidence = 1.0
	plan.Reasoning = "Edited during review"
	c.layout.Place(plan)

	if err := c.plans.UpdatePlanClassification(ctx, plan); err != nil {
		return nil, err
	}
	if err := c.plans.UpdatePlanStatus(ctx, id, model.StatusApproved, "edited"); err != nil {
		return nil, err
	}
	plan.Status = model.StatusApproved
	return plan, nil
}

// ApproveAll approves each plan individually so every transition is
// recorded. It returns how many were approved.
func (c *Controller) ApproveAll(ctx context.Context, plans []model.Plan) (int, error) {
	approved := 0
	for _, p := range plans {
		if err := c.Approve(ctx, p.ID); err != nil {
			return approved, fmt.Errorf("approve %s: %w", p.ID, err)
		}
		approved++
	}
	return approved, nil
}

// AutoApproveDeletes approves every pending delete among plans.
func (c *Controller) AutoApproveDeletes(ctx context.Context, plans []model.Plan) (int, error) {
	var deletes []model.Plan
	for _, p := range plans {
		if p.Action == model.ActionDelete && p.Status == model.StatusPending {
			deletes = append(deletes, p)
		}
	}
	n, err := c.ApproveAll(ctx, deletes)
	if n > 0 {
		c.logger.Info("Auto-approved deletions", "count", n)
	}
	return n, err
}

// RevisionResult is the outcome of a revision.
type RevisionResult struct {
	Plan       *model.Plan
	Correction *model.Correction
}

// Revise reclassifies a pending plan from natural-language feedback. The
// original becomes revised, the new plan is stored pending, and the delta
// is recorded as a correction.
func (c *Controller) Revise(ctx context.Context, id, feedback string) (*RevisionResult, error) {
	if c.reviser == nil || c.facts == nil {
		return nil, engine.ErrOracleDisabled
	}
	if feedback == "" {
		return nil, fmt.Errorf("%w: feedback is required", ErrNotRevisable)
	}

	original, err := c.plans.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if original.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotRevisable, id, original.Status)
	}

	facts, err := c.facts(original.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, original.SourcePath)
	}

	revised, err := c.reviser.Revise(ctx, facts, *original, feedback)
	if err != nil {
		return nil, err
	}
	if err := c.plans.SaveRevision(ctx, original.ID, &revised); err != nil {
		return nil, fmt.Errorf("failed to store revision: %w", err)
	}
	c.logger.Info("Plan revised",
		"plan_id", original.ID,
		"revised_id", revised.ID,
		"action", revised.Action,
		"domain", revised.Domain)

	if revised.Degraded() {
		c.logger.Warn("Not learning from a failed revision", "plan_id", original.ID)
		return &RevisionResult{Plan: &revised}, nil
	}

	correction := &model.Correction{
		OriginalFilename:   original.SourceName(),
		OriginalAction:     original.Action,
		OriginalDomain:     original.Domain,
		OriginalSubfolder:  original.Subfolder,
		CorrectedAction:    revised.Action,
		CorrectedDomain:    revised.Domain,
		CorrectedSubfolder: revised.Subfolder,
		UserFeedback:       feedback,
	}
	if pattern, err := c.reviser.ExtractPattern(ctx, *correction); err != nil {
		c.logger.Warn("Pattern extraction failed", "plan_id", original.ID, "error", err)
	} else {
		correction.FilenamePattern = pattern.FilenamePattern
		correction.Keywords = pattern.Keywords
	}

	if err := c.corrections.SaveCorrection(ctx, correction); err != nil {
		return &RevisionResult{Plan: &revised}, fmt.Errorf("failed to save correction: %w", err)
	}
	return &RevisionResult{Plan: &revised, Correction: correction}, nil
}

func (c *Controller) pending(ctx context.Context, id string) (*model.Plan, error) {
	plan, err := c.plans.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotPending, id, plan.Status)
	}
	return plan, nil
}
