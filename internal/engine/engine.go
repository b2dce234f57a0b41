// Package engine implements the plan builder: the layered classification
// pipeline that turns extracted facts into pending plans.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/sift/internal/common"
	"github.com/Veraticus/sift/internal/llm"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/rules"
)

// ErrOracleDisabled is returned by operations that cannot proceed without
// the oracle.
var ErrOracleDisabled = errors.New("AI classification is not available")

// Reasoning attached to plans decided before any rule runs.
const (
	ProtectedReasoning = "Note is in a protected location"
	learnedCandidates  = 5
)

// Config holds the escalation policy.
type Config struct {
	AIThreshold        float64
	MaxFileSizeMB      int64
	BatchSize          int
	CorrectionExamples int
	AIEnabled          bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		AIThreshold:        0.8,
		AIEnabled:          true,
		MaxFileSizeMB:      100,
		BatchSize:          llm.MaxFileBatch,
		CorrectionExamples: llm.MaxExamples,
	}
}

// Builder runs the classification stages in fixed order: protected
// location, ignore list, learned corrections, rules, oracle.
type Builder struct {
	layout      Layout
	rules       RuleEvaluator
	corrections CorrectionSource
	oracle      Oracle
	ignorer     *rules.Ignorer
	logger      *slog.Logger
	newID       func() string
	now         func() time.Time
	cfg         Config
}

// Option configures a Builder.
type Option func(*Builder)

// WithOracle enables escalation to o.
func WithOracle(o Oracle) Option {
	return func(b *Builder) { b.oracle = o }
}

// WithIgnorer sets the ignore list checked before any other stage.
func WithIgnorer(i *rules.Ignorer) Option {
	return func(b *Builder) { b.ignorer = i }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = common.OrDefault(l) }
}

// WithIDGenerator overrides plan id generation.
func WithIDGenerator(fn func() string) Option {
	return func(b *Builder) { b.newID = fn }
}

// WithClock overrides the plan creation clock.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New creates a plan builder. corrections may be nil.
func New(cfg Config, layout Layout, ruleEngine RuleEvaluator, corrections CorrectionSource, opts ...Option) *Builder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = llm.MaxFileBatch
	}
	if cfg.CorrectionExamples <= 0 {
		cfg.CorrectionExamples = llm.MaxExamples
	}
	b := &Builder{
		cfg:         cfg,
		layout:      layout,
		rules:       ruleEngine,
		corrections: corrections,
		logger:      slog.Default(),
		newID:       func() string { return uuid.New().String()[:8] },
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Layout returns the builder's layout.
func (b *Builder) Layout() Layout {
	return b.layout
}

// HasOracle reports whether escalation is possible at all.
func (b *Builder) HasOracle() bool {
	return b.oracle != nil && b.cfg.AIEnabled
}

// Classify builds a pending plan for one item. It never fails: oracle
// errors become a skip plan with zero confidence.
func (b *Builder) Classify(ctx context.Context, facts model.Facts) model.Plan {
	plan, final := b.classifyLocal(ctx, facts)
	if final || !b.needsOracle(plan) || !b.canUseOracle(facts) {
		return plan
	}

	v, err := b.oracle.Classify(ctx, facts, b.examples(ctx, facts.Name), nil)
	if err != nil {
		b.logger.Error("AI classification failed", "name", facts.Name, "error", err)
		return b.oracleFailed(facts, err)
	}
	return b.fromVerdict(facts, v)
}

// ClassifyBatch classifies items locally and escalates the undecided ones
// to the oracle in chunks. Plans come back in input order. An item the
// oracle omitted from a salvaged reply keeps its rule plan when a rule
// matched and is dropped otherwise.
func (b *Builder) ClassifyBatch(ctx context.Context, items []model.Facts) []model.Plan {
	plans := make([]*model.Plan, len(items))
	var escalate []int

	for i, facts := range items {
		plan, final := b.classifyLocal(ctx, facts)
		plans[i] = &plan
		if !final && b.needsOracle(plan) && b.canUseOracle(facts) {
			escalate = append(escalate, i)
		}
	}

	if len(escalate) > 0 {
		b.escalateBatch(ctx, items, plans, escalate)
	}

	out := make([]model.Plan, 0, len(plans))
	for _, p := range plans {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func (b *Builder) escalateBatch(ctx context.Context, items []model.Facts, plans []*model.Plan, escalate []int) {
	size := min(b.cfg.BatchSize, b.oracle.BatchLimit())
	examples := b.recentExamples(ctx)

	for start := 0; start < len(escalate); start += size {
		chunk := escalate[start:min(start+size, len(escalate))]
		batch := make([]model.Facts, len(chunk))
		for j, idx := range chunk {
			batch[j] = items[idx]
		}

		verdicts, err := b.oracle.ClassifyBatch(ctx, batch, examples)
		if err != nil {
			b.logger.Error("AI batch classification failed", "items", len(batch), "error", err)
			for _, idx := range chunk {
				failed := b.oracleFailed(items[idx], err)
				plans[idx] = &failed
			}
			continue
		}

		answered := make(map[int]bool, len(verdicts))
		for _, v := range verdicts {
			if v.Index < 0 || v.Index >= len(chunk) {
				continue
			}
			idx := chunk[v.Index]
			answered[v.Index] = true
			plan := b.fromVerdict(items[idx], v)
			plans[idx] = &plan
		}
		for j, idx := range chunk {
			if answered[j] || (plans[idx].ClassificationSource == model.SourceRules && plans[idx].Confidence > 0) {
				continue
			}
			b.logger.Debug("No classification returned for item", "name", items[idx].Name)
			plans[idx] = nil
		}
	}
}

// Revise asks the oracle to reclassify an item given the user's feedback.
// The returned plan links back to original. Oracle failures produce a
// degraded plan rather than an error.
func (b *Builder) Revise(ctx context.Context, facts model.Facts, original model.Plan, feedback string) (model.Plan, error) {
	if b.oracle == nil {
		return model.Plan{}, ErrOracleDisabled
	}

	rev := &llm.Revision{
		Action:    original.Action,
		Domain:    original.Domain,
		Subfolder: original.Subfolder,
		Reasoning: original.Reasoning,
		Feedback:  feedback,
	}

	var plan model.Plan
	v, err := b.oracle.Classify(ctx, facts, b.examples(ctx, facts.Name), rev)
	if err != nil {
		b.logger.Error("AI revision failed", "plan_id", original.ID, "error", err)
		plan = b.oracleFailed(facts, err)
	} else {
		plan = b.fromVerdict(facts, v)
	}

	plan.UserFeedback = feedback
	plan.OriginalPlanID = original.ID
	plan.RevisionCount = original.RevisionCount + 1
	return plan, nil
}

// ExtractPattern generalizes a correction into a filename pattern and
// keywords.
func (b *Builder) ExtractPattern(ctx context.Context, c model.Correction) (llm.Pattern, error) {
	if b.oracle == nil {
		return llm.Pattern{}, ErrOracleDisabled
	}
	return b.oracle.ExtractPattern(ctx, c)
}

// classifyLocal runs every stage short of the oracle. final is true when
// the plan must not be escalated.
func (b *Builder) classifyLocal(ctx context.Context, facts model.Facts) (plan model.Plan, final bool) {
	if b.layout.Protected(facts.Path) {
		return b.terminalSkip(facts, ProtectedReasoning), true
	}
	if b.ignorer.Ignored(facts.Name) {
		return b.terminalSkip(facts, rules.IgnoreReasoning), true
	}
	if plan, ok := b.applyCorrections(ctx, facts); ok {
		return plan, true
	}
	return b.fromMatch(facts, b.rules.Evaluate(facts)), false
}

func (b *Builder) applyCorrections(ctx context.Context, facts model.Facts) (model.Plan, bool) {
	if b.corrections == nil {
		return model.Plan{}, false
	}
	candidates, err := b.corrections.RelevantCorrections(ctx, facts.Name, learnedCandidates)
	if err != nil {
		b.logger.Debug("Correction lookup unavailable", "error", err)
		return model.Plan{}, false
	}

	for _, c := range candidates {
		confidence, reasoning, ok := matchCorrection(c, facts.Name)
		if !ok {
			continue
		}
		if err := b.corrections.MarkCorrectionUsed(ctx, c.ID); err != nil {
			b.logger.Warn("Failed to record correction usage", "correction_id", c.ID, "error", err)
		}

		plan := b.newPlan(facts)
		plan.Action = c.CorrectedAction
		plan.Domain = c.CorrectedDomain
		plan.Subfolder = c.CorrectedSubfolder
		plan.Category = model.CategoryDocument
		plan.Confidence = confidence
		plan.Reasoning = reasoning
		plan.ClassificationSource = model.SourceLearned
		b.layout.Place(&plan)
		return plan, true
	}
	return model.Plan{}, false
}

// matchCorrection applies a correction to a filename: a pattern match is
// decisive at 0.95, otherwise two or more keywords are decisive at 0.85.
func matchCorrection(c model.Correction, name string) (float64, string, bool) {
	if c.FilenamePattern != "" {
		if ok, err := common.MatchRegex(c.FilenamePattern, name); err == nil && ok {
			return 0.95, "Matched learned pattern: " + truncate(c.UserFeedback, 50), true
		}
	}

	lower := strings.ToLower(name)
	hits := 0
	for _, kw := range c.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			hits++
		}
	}
	if hits >= 2 {
		shown := c.Keywords
		if len(shown) > 3 {
			shown = shown[:3]
		}
		return 0.85, "Matched learned keywords: " + strings.Join(shown, ", "), true
	}
	return 0, "", false
}

func (b *Builder) fromMatch(facts model.Facts, m rules.Match) model.Plan {
	plan := b.newPlan(facts)
	plan.Action = m.Action
	plan.Category = m.Category
	plan.Domain = m.Domain
	plan.Subfolder = m.Subfolder
	plan.Confidence = m.Confidence
	plan.Reasoning = m.Reasoning
	plan.ClassificationSource = model.SourceRules
	b.layout.Place(&plan)
	return plan
}

func (b *Builder) fromVerdict(facts model.Facts, v llm.Verdict) model.Plan {
	plan := b.newPlan(facts)
	plan.Action = v.Action
	plan.Category = v.Category
	plan.Domain = b.layout.ResolveLabel(v.Label)
	plan.Subfolder = v.Subfolder
	plan.SuggestedName = v.SuggestedName
	plan.Confidence = v.Confidence
	plan.Reasoning = v.Reasoning
	plan.ClassificationSource = model.SourceAI
	plan.Metadata = model.PlanMetadata{ExtractedPattern: v.Pattern, ExtractedKeywords: v.Keywords}

	if !b.layout.Allows(plan.Action) {
		plan.Reasoning = fmt.Sprintf("%s (action %s not available, skipping)", plan.Reasoning, plan.Action)
		plan.Action = model.ActionSkip
	}
	b.layout.Place(&plan)
	return plan
}

func (b *Builder) oracleFailed(facts model.Facts, err error) model.Plan {
	plan := b.newPlan(facts)
	plan.Action = model.ActionSkip
	plan.Category = model.CategoryUnknown
	plan.Reasoning = fmt.Sprintf("%s: %v", model.OracleFailedReasoning, err)
	plan.ClassificationSource = model.SourceAI
	b.layout.Place(&plan)
	return plan
}

func (b *Builder) terminalSkip(facts model.Facts, reasoning string) model.Plan {
	plan := b.newPlan(facts)
	plan.Action = model.ActionSkip
	plan.Category = model.CategoryUnknown
	plan.Confidence = 1.0
	plan.Reasoning = reasoning
	plan.ClassificationSource = model.SourceRules
	b.layout.Place(&plan)
	return plan
}

func (b *Builder) newPlan(facts model.Facts) model.Plan {
	return model.Plan{
		ID:         b.newID(),
		SourcePath: facts.Path,
		Status:     model.StatusPending,
		CreatedAt:  b.now().UTC(),
	}
}

// needsOracle reports whether a local plan is too weak to stand alone:
// low confidence, an unknown category, or a move with nowhere to go.
func (b *Builder) needsOracle(p model.Plan) bool {
	return p.Confidence < b.cfg.AIThreshold ||
		p.Category == model.CategoryUnknown ||
		(p.Action.Relocates() && p.Domain == "")
}

func (b *Builder) canUseOracle(facts model.Facts) bool {
	if !b.HasOracle() {
		return false
	}
	if b.cfg.MaxFileSizeMB > 0 && facts.SizeMB() > float64(b.cfg.MaxFileSizeMB) {
		b.logger.Debug("File too large for AI classification", "name", facts.Name, "size_mb", facts.SizeMB())
		return false
	}
	return true
}

// examples returns the corrections most relevant to name for few-shot
// context.
func (b *Builder) examples(ctx context.Context, name string) []model.Correction {
	if b.corrections == nil {
		return nil
	}
	out, err := b.corrections.RelevantCorrections(ctx, name, b.cfg.CorrectionExamples)
	if err != nil {
		b.logger.Debug("Correction lookup unavailable", "error", err)
		return nil
	}
	return out
}

// recentExamples returns the newest corrections for batch prompts, which
// have no single filename to rank against.
func (b *Builder) recentExamples(ctx context.Context) []model.Correction {
	if b.corrections == nil {
		return nil
	}
	out, err := b.corrections.ListCorrections(ctx, b.cfg.CorrectionExamples)
	if err != nil {
		b.logger.Debug("Correction lookup unavailable", "error", err)
		return nil
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
