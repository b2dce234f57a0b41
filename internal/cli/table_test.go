package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/sift/internal/model"
)

func TestPlanCard(t *testing.T) {
	p := samplePlan()
	p.UserFeedback = "tax stuff is finance"
	p.RevisionCount = 1
	p.OriginalPlanID = "orig0001"

	card := PlanCard(p)
	for _, want := range []string{
		"/dl/2024_Tax_Return.pdf",
		"Finance/Documents",
		"/areas/Finance/Documents/2024_Tax_Return.pdf",
		"85%",
		"Matched rule: financial statements",
		"tax stuff is finance",
		"#1 of orig0001",
	} {
		assert.Contains(t, card, want)
	}
	assert.NotContains(t, card, "Error")
}

func TestPlanTable(t *testing.T) {
	p := samplePlan()
	p.CreatedAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	out := PlanTable([]model.Plan{p})
	for _, want := range []string{"ID", "abc12345", "pending", "move", "Finance/Documents", "85%", "rules"} {
		assert.Contains(t, out, want)
	}
}

func TestCorrectionTable(t *testing.T) {
	out := CorrectionTable([]model.Correction{{
		ID:                 "c1",
		OriginalFilename:   "invoice_2024.pdf",
		CorrectedAction:    model.ActionMove,
		CorrectedDomain:    "Finance",
		CorrectedSubfolder: "Invoices",
		FilenamePattern:    "invoice",
		Keywords:           []string{"invoice", "bill"},
		TimesApplied:       3,
	}})
	for _, want := range []string{"c1", "invoice_2024.pdf", "move → Finance/Invoices", "invoice, bill", "3"} {
		assert.Contains(t, out, want)
	}
}

func TestSummaryView(t *testing.T) {
	assert.Contains(t, SummaryView(nil), "No pending plans")

	out := SummaryView(&model.Summary{
		Total:               3,
		ByAction:            map[model.Action]int{model.ActionDelete: 2, model.ActionMove: 1},
		ByDomain:            map[string]int{"Finance": 1},
		EstimatedFreedBytes: 2_500_000,
	})
	assert.Contains(t, out, "3 pending plans")
	assert.Contains(t, out, "delete")
	assert.Contains(t, out, "Finance")
	assert.Contains(t, out, "2.5 MB")
}

func TestResultsView(t *testing.T) {
	out := ResultsView([]model.ExecutionResult{
		{PlanID: "p1", Success: true, Message: "Moved"},
		{PlanID: "p2", Message: "Source file no longer exists"},
	})
	assert.Contains(t, out, "1 succeeded")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "p2")
	assert.Contains(t, out, "Source file no longer exists")

	assert.NotContains(t, ResultsView([]model.ExecutionResult{{PlanID: "p1", Success: true}}), "failed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "1.0 kB", FormatSize(1000))
	assert.Equal(t, "0 B", FormatSize(-5))
}

func TestTable(t *testing.T) {
	out := Table([]string{"NAME", "PLANS"}, [][]string{{"before-cleanup", "12"}, {"auto-cleanup", "3"}})
	for _, want := range []string{"NAME", "PLANS", "before-cleanup", "12", "auto-cleanup"} {
		assert.Contains(t, out, want)
	}
}
