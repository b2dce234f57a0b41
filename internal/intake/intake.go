// Package intake finds candidate items, classifies them and stores the
// resulting pending plans.
package intake

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/model"
)

// PlanSaver is the slice of the plan store intake needs.
type PlanSaver interface {
	GetActivePlanBySource(ctx context.Context, sourcePath string) (*model.Plan, error)
	SavePlan(ctx context.Context, plan *model.Plan) error
}

// Classifier turns facts into plans, in input order. It may return fewer
// plans than items.
type Classifier interface {
	ClassifyBatch(ctx context.Context, items []model.Facts) []model.Plan
}

// FactFunc extracts facts for one path.
type FactFunc func(path string) (model.Facts, error)

// Ignorer decides whether a name is never scanned.
type Ignorer interface {
	Ignored(name string) bool
}

// Result summarizes one intake run.
type Result struct {
	Saved      []model.Plan
	Existing   int
	Unreadable int
	Dropped    int
}

// Intake classifies items that have no active plan yet.
type Intake struct {
	plans      PlanSaver
	classifier Classifier
	facts      FactFunc
	logger     *slog.Logger
}

// New creates an intake.
func New(plans PlanSaver, classifier Classifier, facts FactFunc, logger *slog.Logger) *Intake {
	return &Intake{plans: plans, classifier: classifier, facts: facts, logger: common.OrDefault(logger)}
}

// Run classifies paths and saves a pending plan for each. Paths that
// already have a pending or approved plan are left alone.
func (in *Intake) Run(ctx context.Context, paths []string) (Result, error) {
	var res Result
	items := make([]model.Facts, 0, len(paths))
	for _, p := range paths {
		active, err := in.plans.GetActivePlanBySource(ctx, p)
		if err != nil {
			return res, fmt.Errorf("failed to check existing plan for %s: %w", p, err)
		}
		if active != nil {
			in.logger.Debug("Plan already exists", "path", p, "plan_id", active.ID)
			res.Existing++
			continue
		}
		facts, err := in.facts(p)
		if err != nil {
			in.logger.Warn("Skipping unreadable item", "path", p, "error", err)
			res.Unreadable++
			continue
		}
		items = append(items, facts)
	}
	if len(items) == 0 {
		return res, nil
	}

	plans := in.classifier.ClassifyBatch(ctx, items)
	res.Dropped = len(items) - len(plans)
	if res.Dropped > 0 {
		in.logger.Warn("Some items received no plan", "count", res.Dropped)
	}

	for i := range plans {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := in.plans.SavePlan(ctx, &plans[i]); err != nil {
			return res, fmt.Errorf("failed to save plan for %s: %w", plans[i].SourcePath, err)
		}
		in.logger.Info("Plan created",
			"plan_id", plans[i].ID,
			"file", plans[i].SourceName(),
			"action", plans[i].Action,
			"confidence", plans[i].Confidence)
		res.Saved = append(res.Saved, plans[i])
	}
	return res, nil
}

// ScanFiles lists the regular files directly inside dir, sorted by name.
func ScanFiles(dir string, ignorer Ignorer) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ignorer != nil && ignorer.Ignored(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ScanNotes walks a vault for markdown notes, skipping hidden directories
// and anything protected reports true for.
func ScanNotes(vault string, ignorer Ignorer, protected func(path string) bool) ([]string, error) {
	var out []string
	err := filepath.WalkDir(vault, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != vault && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(name), ".md") {
			return nil
		}
		if ignorer != nil && ignorer.Ignored(name) {
			return nil
		}
		if protected != nil && protected(path) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan vault: %w", err)
	}
	sort.Strings(out)
	return out, nil
}
