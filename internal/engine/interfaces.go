package engine

import (
	"context"

	"github.com/Veraticus/sift/internal/llm"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/rules"
)

// Oracle defines the contract for language-model classification.
type Oracle interface {
	Classify(ctx context.Context, facts model.Facts, corrections []model.Correction, rev *llm.Revision) (llm.Verdict, error)
	ClassifyBatch(ctx context.Context, items []model.Facts, corrections []model.Correction) ([]llm.Verdict, error)
	ExtractPattern(ctx context.Context, c model.Correction) (llm.Pattern, error)
	BatchLimit() int
}

// CorrectionSource is the read side of the correction store used during
// classification.
type CorrectionSource interface {
	RelevantCorrections(ctx context.Context, filename string, limit int) ([]model.Correction, error)
	ListCorrections(ctx context.Context, limit int) ([]model.Correction, error)
	MarkCorrectionUsed(ctx context.Context, id string) error
}

// RuleEvaluator is the static rule stage.
type RuleEvaluator interface {
	Evaluate(facts model.Facts) rules.Match
}
