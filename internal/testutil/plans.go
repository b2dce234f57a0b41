package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/service"
)

// PlanBuilder assembles plans for tests with a fluent API.
//
//	plan := testutil.NewPlan(t, "/downloads/Setup.dmg").
//		WithAction(model.ActionDelete).
//		Save(ctx, store)
type PlanBuilder struct {
	t    *testing.T
	plan model.Plan
}

var planSeq atomic.Int64

// NewPlan starts a pending rules-sourced move plan for source.
func NewPlan(t *testing.T, source string) *PlanBuilder {
	t.Helper()
	return &PlanBuilder{
		t: t,
		plan: model.Plan{
			ID:                   fmt.Sprintf("plan%04d", planSeq.Add(1)),
			SourcePath:           source,
			Action:               model.ActionMove,
			Category:             model.CategoryDocument,
			Confidence:           0.9,
			Reasoning:            "Matched rule: fixture",
			ClassificationSource: model.SourceRules,
			Status:               model.StatusPending,
		},
	}
}

// WithID overrides the generated ID.
func (b *PlanBuilder) WithID(id string) *PlanBuilder {
	b.plan.ID = id
	return b
}

// WithAction sets the action. Non-relocating actions clear the destination.
func (b *PlanBuilder) WithAction(a model.Action) *PlanBuilder {
	b.plan.Action = a
	if !a.Relocates() {
		b.plan.DestinationPath = ""
	}
	return b
}

// WithDestination routes the plan into areasRoot/domain/subfolder.
func (b *PlanBuilder) WithDestination(areasRoot, domain, subfolder string) *PlanBuilder {
	b.plan.Domain = domain
	b.plan.Subfolder = subfolder
	b.plan.DestinationPath = filepath.Join(areasRoot, domain, subfolder, b.plan.TargetName())
	return b
}

// WithSuggestedName sets the rename target.
func (b *PlanBuilder) WithSuggestedName(name string) *PlanBuilder {
	b.plan.SuggestedName = name
	return b
}

// WithStatus sets the initial status.
func (b *PlanBuilder) WithStatus(s model.PlanStatus) *PlanBuilder {
	b.plan.Status = s
	return b
}

// WithConfidence sets the confidence.
func (b *PlanBuilder) WithConfidence(c float64) *PlanBuilder {
	b.plan.Confidence = c
	return b
}

// Build returns the plan without persisting it.
func (b *PlanBuilder) Build() *model.Plan {
	p := b.plan
	return &p
}

// Save persists the plan, moving it through approval first when the
// requested status is approved.
func (b *PlanBuilder) Save(ctx context.Context, store service.PlanStore) *model.Plan {
	b.t.Helper()

	want := b.plan.Status
	p := b.Build()
	p.Status = model.StatusPending
	if err := store.SavePlan(ctx, p); err != nil {
		b.t.Fatalf("failed to save plan %s: %v", p.ID, err)
	}
	if want != model.StatusPending {
		if err := store.UpdatePlanStatus(ctx, p.ID, want, "fixture"); err != nil {
			b.t.Fatalf("failed to move plan %s to %s: %v", p.ID, want, err)
		}
		p.Status = want
	}
	return p
}
