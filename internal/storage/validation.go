// Package storage provides the SQLite persistence layer for plans and corrections.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

// Validation and lookup errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidPlan        = errors.New("invalid plan")
	ErrInvalidCorrection  = errors.New("invalid correction")
	ErrInvalidStatus      = errors.New("invalid plan status")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrPlanNotFound       = fmt.Errorf("plan %w", common.ErrNotFound)
	ErrPlanNotEditable    = errors.New("plan is not pending")
	ErrActivePlanExists   = errors.New("an active plan already exists for this source")
	ErrCorrectionNotFound = fmt.Errorf("correction %w", common.ErrNotFound)
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validatePlan(p *model.Plan) error {
	if p == nil {
		return fmt.Errorf("%w: plan", ErrNilParameter)
	}
	if p.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidPlan)
	}
	if p.SourcePath == "" {
		return fmt.Errorf("%w: missing source path", ErrInvalidPlan)
	}
	if _, ok := model.ParseAction(string(p.Action)); !ok {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidPlan, p.Action)
	}
	if _, ok := model.ParseStatus(string(p.Status)); !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidPlan, p.Status)
	}
	if strings.TrimSpace(p.Reasoning) == "" {
		return fmt.Errorf("%w: missing reasoning", ErrInvalidPlan)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v out of range", ErrInvalidPlan, p.Confidence)
	}
	return nil
}

func validateCorrection(c *model.Correction) error {
	if c == nil {
		return fmt.Errorf("%w: correction", ErrNilParameter)
	}
	if c.OriginalFilename == "" {
		return fmt.Errorf("%w: missing original filename", ErrInvalidCorrection)
	}
	if _, ok := model.ParseAction(string(c.CorrectedAction)); !ok {
		return fmt.Errorf("%w: unknown corrected action %q", ErrInvalidCorrection, c.CorrectedAction)
	}
	return nil
}
