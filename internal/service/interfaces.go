// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/sift/internal/model"
)

// PlanFilter narrows plan queries. Zero values mean "any".
type PlanFilter struct {
	Status model.PlanStatus
	Action model.Action
	Domain string
	Limit  int
}

// PlanStore persists plans and their status history.
type PlanStore interface {
	SavePlan(ctx context.Context, plan *model.Plan) error
	SaveRevision(ctx context.Context, originalID string, revised *model.Plan) error
	GetPlan(ctx context.Context, id string) (*model.Plan, error)
	GetActivePlanBySource(ctx context.Context, sourcePath string) (*model.Plan, error)
	ListPlans(ctx context.Context, filter PlanFilter) ([]model.Plan, error)
	UpdatePlanStatus(ctx context.Context, id string, to model.PlanStatus, note string) error
	UpdatePlanClassification(ctx context.Context, plan *model.Plan) error
	MarkExecuted(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, message string) error
	StatusHistory(ctx context.Context, id string) ([]model.StatusChange, error)
	Summary(ctx context.Context) (*model.Summary, error)
	CleanupOldPlans(ctx context.Context, olderThan time.Duration) (int, error)
}

// CorrectionStore persists learned corrections.
type CorrectionStore interface {
	SaveCorrection(ctx context.Context, c *model.Correction) error
	GetCorrection(ctx context.Context, id string) (*model.Correction, error)
	ListCorrections(ctx context.Context, limit int) ([]model.Correction, error)
	SearchCorrections(ctx context.Context, term string, limit int) ([]model.Correction, error)
	RelevantCorrections(ctx context.Context, filename string, limit int) ([]model.Correction, error)
	MarkCorrectionUsed(ctx context.Context, id string) error
}

// Storage is the full persistence contract.
type Storage interface {
	PlanStore
	CorrectionStore
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
