package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/sift/internal/llm"
	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/rules"
)

const areas = "/areas"

// fakeCorrections is an in-memory CorrectionSource that counts lookups.
type fakeCorrections struct {
	err     error
	used    map[string]int
	items   []model.Correction
	lookups int
	mu      sync.Mutex
}

func (f *fakeCorrections) RelevantCorrections(_ context.Context, _ string, limit int) ([]model.Correction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func (f *fakeCorrections) ListCorrections(ctx context.Context, limit int) ([]model.Correction, error) {
	return f.RelevantCorrections(ctx, "", limit)
}

func (f *fakeCorrections) MarkCorrectionUsed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.used == nil {
		f.used = make(map[string]int)
	}
	f.used[id]++
	return nil
}

// ruleSpy counts evaluations before delegating.
type ruleSpy struct {
	next  RuleEvaluator
	calls int
}

func (r *ruleSpy) Evaluate(facts model.Facts) rules.Match {
	r.calls++
	return r.next.Evaluate(facts)
}

func facts(name string) model.Facts {
	return model.Facts{Path: filepath.Join("/downloads", name), Name: name, Size: 2048}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("plan%04d", n)
	}
}

type fixture struct {
	builder     *Builder
	oracle      *MockOracle
	corrections *fakeCorrections
	rules       *ruleSpy
	logs        *bytes.Buffer
}

func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()
	f := &fixture{
		oracle:      NewMockOracle(),
		corrections: &fakeCorrections{},
		rules:       &ruleSpy{next: rules.NewFileEngine()},
		logs:        &bytes.Buffer{},
	}
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f.builder = New(cfg, NewFileLayout(areas, logger), f.rules, f.corrections,
		WithOracle(f.oracle),
		WithIgnorer(rules.NewIgnorer([]string{".DS_Store", "*.tmp"}, true)),
		WithLogger(logger),
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }),
	)
	return f
}

func TestBuilder_RuleScenarios(t *testing.T) {
	tests := []struct {
		name       string
		file       string
		action     model.Action
		domain     string
		subfolder  string
		dest       string
		confidence float64
	}{
		{
			name:       "macOS screenshot is deleted",
			file:       "Screenshot 2024-01-02 at 10.30.15 AM.png",
			action:     model.ActionDelete,
			confidence: 0.95,
		},
		{
			name:       "dated tax return goes to finance",
			file:       "2024_Tax_Return.pdf",
			action:     model.ActionMove,
			domain:     "Finance",
			subfolder:  "Documents",
			dest:       "/areas/Finance/Documents/2024_Tax_Return.pdf",
			confidence: 0.85,
		},
		{
			name:       "installer is deleted",
			file:       "Slack-4.36.dmg",
			action:     model.ActionDelete,
			confidence: 0.95,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			plan := f.builder.Classify(context.Background(), facts(tt.file))

			assert.Equal(t, tt.action, plan.Action)
			assert.Equal(t, tt.domain, plan.Domain)
			assert.Equal(t, tt.subfolder, plan.Subfolder)
			assert.Equal(t, tt.dest, plan.DestinationPath)
			assert.InDelta(t, tt.confidence, plan.Confidence, 1e-9)
			assert.Equal(t, model.SourceRules, plan.ClassificationSource)
			assert.Equal(t, model.StatusPending, plan.Status)
			assert.Empty(t, f.oracle.GetCalls(), "confident rule plans are not escalated")
		})
	}
}

func TestBuilder_IgnoredItemsSkipEveryStage(t *testing.T) {
	for _, name := range []string{".DS_Store", "download.tmp", ".hidden-file.pdf"} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			plan := f.builder.Classify(context.Background(), facts(name))

			assert.Equal(t, model.ActionSkip, plan.Action)
			assert.InDelta(t, 1.0, plan.Confidence, 0)
			assert.Equal(t, rules.IgnoreReasoning, plan.Reasoning)
			assert.Empty(t, plan.DestinationPath)
			assert.Zero(t, f.corrections.lookups)
			assert.Zero(t, f.rules.calls)
			assert.Empty(t, f.oracle.GetCalls())
		})
	}
}

func TestBuilder_LearnedCorrections(t *testing.T) {
	work := model.Correction{
		ID:               "c1",
		OriginalFilename: "uber-receipt-march.pdf",
		CorrectedAction:  model.ActionMove,
		CorrectedDomain:  "Work",
		UserFeedback:     "uber rides are always business travel for me",
		FilenamePattern:  `^uber.*\.pdf$`,
	}
	keywords := model.Correction{
		ID:                 "c2",
		CorrectedAction:    model.ActionMove,
		CorrectedDomain:    "Health",
		CorrectedSubfolder: "Archive",
		UserFeedback:       "old lab work",
		Keywords:           []string{"quest", "labs", "panel", "lipid"},
	}

	tests := []struct {
		name       string
		file       string
		reasoning  string
		dest       string
		correction string
		confidence float64
	}{
		{
			name:       "pattern match",
			file:       "uber-april.pdf",
			confidence: 0.95,
			reasoning:  "Matched learned pattern: uber rides are always business travel for me",
			dest:       "/areas/Work/Documents/uber-april.pdf",
			correction: "c1",
		},
		{
			name:       "two keywords",
			file:       "Quest-Labs-2019.pdf",
			confidence: 0.85,
			reasoning:  "Matched learned keywords: quest, labs, panel",
			dest:       "/areas/Health/Archive/Quest-Labs-2019.pdf",
			correction: "c2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.corrections.items = []model.Correction{work, keywords}

			plan := f.builder.Classify(context.Background(), facts(tt.file))

			assert.Equal(t, model.SourceLearned, plan.ClassificationSource)
			assert.InDelta(t, tt.confidence, plan.Confidence, 1e-9)
			assert.Equal(t, tt.reasoning, plan.Reasoning)
			assert.Equal(t, tt.dest, plan.DestinationPath)
			assert.Equal(t, map[string]int{tt.correction: 1}, f.corrections.used)
			assert.Zero(t, f.rules.calls)
			assert.Empty(t, f.oracle.GetCalls())
		})
	}

	t.Run("single keyword falls through to rules", func(t *testing.T) {
		f := newFixture(t)
		f.corrections.items = []model.Correction{keywords}

		plan := f.builder.Classify(context.Background(), facts("quest-statement.pdf"))
		assert.Equal(t, model.SourceRules, plan.ClassificationSource)
		assert.Equal(t, "Finance", plan.Domain)
		assert.Empty(t, f.corrections.used)
	})

	t.Run("store failure degrades to rules", func(t *testing.T) {
		f := newFixture(t)
		f.corrections.err = errors.New("no such table: corrections")

		plan := f.builder.Classify(context.Background(), facts("2024_Tax_Return.pdf"))
		assert.Equal(t, model.SourceRules, plan.ClassificationSource)
		assert.Equal(t, "Finance", plan.Domain)
	})
}

func TestBuilder_Escalation(t *testing.T) {
	t.Run("unmatched file goes to the oracle", func(t *testing.T) {
		f := newFixture(t)
		f.oracle.Verdicts["contract.pdf"] = llm.Verdict{
			Action:        model.ActionMove,
			Label:         "Travel",
			Subfolder:     "Documents",
			Category:      model.CategoryDocument,
			SuggestedName: "2024-05-01-rental-contract.pdf",
			Confidence:    0.8,
			Reasoning:     "rental agreement",
			Pattern:       "contract",
		}

		plan := f.builder.Classify(context.Background(), facts("contract.pdf"))

		assert.Equal(t, model.SourceAI, plan.ClassificationSource)
		assert.Equal(t, "Personal", plan.Domain)
		assert.Equal(t, "/areas/Personal/Documents/2024-05-01-rental-contract.pdf", plan.DestinationPath)
		assert.Equal(t, "contract", plan.Metadata.ExtractedPattern)
		assert.Contains(t, f.logs.String(), "Mapped domain alias")
		require.Len(t, f.oracle.GetCalls(), 1)
	})

	t.Run("unknown domain falls back with a warning", func(t *testing.T) {
		f := newFixture(t)
		f.oracle.Default.Label = "Hobbies"

		plan := f.builder.Classify(context.Background(), facts("mystery.bin"))
		assert.Equal(t, "Personal", plan.Domain)
		assert.Contains(t, f.logs.String(), "Unknown domain, using fallback")
	})

	t.Run("oracle failure degrades to skip", func(t *testing.T) {
		f := newFixture(t)
		f.oracle.Err = errors.New("connection reset")

		plan := f.builder.Classify(context.Background(), facts("mystery.bin"))
		assert.Equal(t, model.ActionSkip, plan.Action)
		assert.Zero(t, plan.Confidence)
		assert.Equal(t, model.SourceAI, plan.ClassificationSource)
		assert.Equal(t, "AI classification failed: connection reset", plan.Reasoning)
		assert.Empty(t, plan.DestinationPath)
	})

	t.Run("AI disabled keeps the rule plan", func(t *testing.T) {
		f := newFixture(t, func(c *Config) { c.AIEnabled = false })

		plan := f.builder.Classify(context.Background(), facts("contract.pdf"))
		assert.Equal(t, model.SourceRules, plan.ClassificationSource)
		assert.Empty(t, plan.DestinationPath, "no domain means no destination")
		assert.Empty(t, f.oracle.GetCalls())
	})

	t.Run("oversized file is not sent", func(t *testing.T) {
		f := newFixture(t, func(c *Config) { c.MaxFileSizeMB = 1 })
		big := facts("huge.bin")
		big.Size = 5 * 1024 * 1024

		plan := f.builder.Classify(context.Background(), big)
		assert.Equal(t, rules.NoMatchReasoning, plan.Reasoning)
		assert.Empty(t, f.oracle.GetCalls())
	})

	t.Run("rule with unknown category is escalated", func(t *testing.T) {
		f := newFixture(t)
		f.oracle.Verdicts["Thumbs.db"] = llm.Verdict{
			Action:     model.ActionDelete,
			Category:   model.CategoryDownload,
			Confidence: 0.9,
			Reasoning:  "thumbnail cache",
		}

		plan := f.builder.Classify(context.Background(), facts("Thumbs.db"))
		assert.Equal(t, model.SourceAI, plan.ClassificationSource)
		assert.Equal(t, model.ActionDelete, plan.Action)
		require.Len(t, f.oracle.GetCalls(), 1)
	})

	t.Run("unknown category keeps the rule plan without AI", func(t *testing.T) {
		f := newFixture(t, func(c *Config) { c.AIEnabled = false })

		plan := f.builder.Classify(context.Background(), facts("Thumbs.db"))
		assert.Equal(t, model.SourceRules, plan.ClassificationSource)
		assert.Equal(t, model.ActionDelete, plan.Action)
		assert.InDelta(t, 0.95, plan.Confidence, 1e-9)
	})

	t.Run("low confidence rule is escalated", func(t *testing.T) {
		f := newFixture(t)
		plan := f.builder.Classify(context.Background(), facts("holiday.jpg"))
		assert.Equal(t, model.SourceAI, plan.ClassificationSource)
		require.Len(t, f.oracle.GetCalls(), 1)
	})
}

func TestBuilder_DestinationStaysUnderAreasRoot(t *testing.T) {
	f := newFixture(t)
	f.oracle.Verdicts["mystery.bin"] = llm.Verdict{
		Action:     model.ActionMove,
		Label:      "Finance",
		Subfolder:  "../../../home/user/.ssh",
		Confidence: 0.9,
	}

	plan := f.builder.Classify(context.Background(), facts("mystery.bin"))
	assert.Equal(t, "/areas/Finance/Documents/mystery.bin", plan.DestinationPath)
	assert.True(t, strings.HasPrefix(plan.DestinationPath, areas+"/"))
	assert.Contains(t, f.logs.String(), "Ignoring unusable subfolder")
}

func TestBuilder_DestinationInvariant(t *testing.T) {
	f := newFixture(t)
	f.oracle.Verdicts["a.bin"] = llm.Verdict{Action: model.ActionDelete, Label: "Finance", Confidence: 0.9}
	f.oracle.Verdicts["b.bin"] = llm.Verdict{Action: model.ActionArchive, Label: "null", Confidence: 0.9}
	f.oracle.Verdicts["c.bin"] = llm.Verdict{Action: model.ActionArchive, Label: "Work", Subfolder: "Archive", Confidence: 0.9}
	f.oracle.Verdicts["d.bin"] = llm.Verdict{Action: model.ActionRename, SuggestedName: "d-renamed.bin", Confidence: 0.9}

	names := []string{"a.bin", "b.bin", "c.bin", "d.bin", "Slack.dmg", "2024_Tax_Return.pdf", "x.zip"}
	for _, name := range names {
		plan := f.builder.Classify(context.Background(), facts(name))
		wantDest := plan.Action.Relocates() && plan.Domain != ""
		assert.Equal(t, wantDest, plan.DestinationPath != "", "%s: %s -> %q", name, plan.Action, plan.Domain)
	}
}

func TestBuilder_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.corrections.items = []model.Correction{{
		ID:              "c1",
		CorrectedAction: model.ActionMove,
		CorrectedDomain: "Work",
		FilenamePattern: `^acme-`,
	}}

	ignoreVolatile := cmpopts.IgnoreFields(model.Plan{}, "ID", "CreatedAt")
	for _, name := range []string{"acme-invoice.pdf", "2024_Tax_Return.pdf", "Screenshot 2024-01-02 at 10.30.15 AM.png"} {
		first := f.builder.Classify(context.Background(), facts(name))
		second := f.builder.Classify(context.Background(), facts(name))
		if diff := cmp.Diff(first, second, ignoreVolatile); diff != "" {
			t.Errorf("%s: plans differ (-first +second):\n%s", name, diff)
		}
	}
}

func TestBuilder_ClassifyBatch(t *testing.T) {
	t.Run("mixes local and oracle plans in input order", func(t *testing.T) {
		f := newFixture(t)
		items := []model.Facts{facts("a.bin"), facts("Slack.dmg"), facts("b.bin"), facts(".DS_Store")}

		plans := f.builder.ClassifyBatch(context.Background(), items)
		require.Len(t, plans, 4)
		for i, p := range plans {
			assert.Equal(t, items[i].Path, p.SourcePath)
		}
		assert.Equal(t, model.SourceAI, plans[0].ClassificationSource)
		assert.Equal(t, model.SourceRules, plans[1].ClassificationSource)

		calls := f.oracle.GetCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, []string{"a.bin", "b.bin"}, calls[0].Names)
	})

	t.Run("chunks by the smaller of batch size and oracle limit", func(t *testing.T) {
		f := newFixture(t, func(c *Config) { c.BatchSize = 4 })
		f.oracle.Limit = 3

		items := make([]model.Facts, 7)
		for i := range items {
			items[i] = facts(fmt.Sprintf("item-%d.bin", i))
		}
		plans := f.builder.ClassifyBatch(context.Background(), items)
		assert.Len(t, plans, 7)

		calls := f.oracle.GetCalls()
		require.Len(t, calls, 3)
		assert.Len(t, calls[0].Names, 3)
		assert.Len(t, calls[2].Names, 1)
	})

	t.Run("truncated reply yields fewer plans", func(t *testing.T) {
		f := newFixture(t)
		f.oracle.BatchAnswer = 9

		items := make([]model.Facts, 15)
		for i := range items {
			items[i] = facts(fmt.Sprintf("unknown-%02d.bin", i))
		}
		plans := f.builder.ClassifyBatch(context.Background(), items)
		assert.Len(t, plans, 9)
		assert.Less(t, len(plans), len(items))
		assert.Equal(t, items[8].Path, plans[8].SourcePath)
	})

	t.Run("omitted item with a weak rule keeps it", func(t *testing.T) {
		f := newFixture(t)
		f.oracle.BatchAnswer = 0

		plans := f.builder.ClassifyBatch(context.Background(), []model.Facts{facts("holiday.jpg"), facts("mystery.bin")})
		require.Len(t, plans, 1)
		assert.Equal(t, "Matched rule: images", plans[0].Reasoning)
	})

	t.Run("oracle failure degrades the whole chunk", func(t *testing.T) {
		f := newFixture(t)
		f.oracle.Err = errors.New("overloaded")

		plans := f.builder.ClassifyBatch(context.Background(), []model.Facts{facts("a.bin"), facts("b.bin")})
		require.Len(t, plans, 2)
		for _, p := range plans {
			assert.Equal(t, model.ActionSkip, p.Action)
			assert.Contains(t, p.Reasoning, "AI classification failed")
		}
	})
}

func TestBuilder_Revise(t *testing.T) {
	f := newFixture(t)
	f.oracle.Verdicts["uber.pdf"] = llm.Verdict{Action: model.ActionMove, Label: "Work", Confidence: 0.9, Reasoning: "business"}

	original := model.Plan{
		ID:            "orig0001",
		SourcePath:    "/downloads/uber.pdf",
		Action:        model.ActionMove,
		Domain:        "Personal",
		Reasoning:     "receipt",
		RevisionCount: 1,
	}

	revised, err := f.builder.Revise(context.Background(), facts("uber.pdf"), original, "this is for work")
	require.NoError(t, err)

	assert.Equal(t, "Work", revised.Domain)
	assert.Equal(t, "orig0001", revised.OriginalPlanID)
	assert.Equal(t, 2, revised.RevisionCount)
	assert.Equal(t, "this is for work", revised.UserFeedback)
	assert.Equal(t, model.StatusPending, revised.Status)

	calls := f.oracle.GetCalls()
	require.Len(t, calls, 1)
	require.NotNil(t, calls[0].Revision)
	assert.Equal(t, "this is for work", calls[0].Revision.Feedback)
	assert.Equal(t, "Personal", calls[0].Revision.Domain)

	t.Run("without oracle", func(t *testing.T) {
		b := New(DefaultConfig(), NewFileLayout(areas, nil), rules.NewFileEngine(), nil)
		_, err := b.Revise(context.Background(), facts("uber.pdf"), original, "x")
		require.ErrorIs(t, err, ErrOracleDisabled)
	})
}
