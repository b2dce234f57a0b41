package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from PlanStatus
		to   PlanStatus
		want bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusRevised, true},
		{StatusPending, StatusExecuted, false},
		{StatusPending, StatusFailed, false},
		{StatusApproved, StatusExecuted, true},
		{StatusApproved, StatusFailed, true},
		{StatusApproved, StatusPending, false},
		{StatusRejected, StatusApproved, false},
		{StatusRevised, StatusPending, false},
		{StatusFailed, StatusApproved, false},
		{StatusExecuted, StatusFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestPlanStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusApproved.IsTerminal())
	for _, s := range []PlanStatus{StatusRejected, StatusRevised, StatusExecuted, StatusFailed} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestParseAction(t *testing.T) {
	a, ok := ParseAction(" Move ")
	assert.True(t, ok)
	assert.Equal(t, ActionMove, a)

	_, ok = ParseAction("shred")
	assert.False(t, ok)

	assert.True(t, ActionArchive.Relocates())
	assert.False(t, ActionRename.Relocates())
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("APPROVED")
	assert.True(t, ok)
	assert.Equal(t, StatusApproved, s)

	_, ok = ParseStatus("done")
	assert.False(t, ok)
}

func TestPlan_TargetName(t *testing.T) {
	p := Plan{SourcePath: "/tmp/scan_001.pdf"}
	assert.Equal(t, "scan_001.pdf", p.TargetName())

	p.SuggestedName = "2024-03-01_Electric_Bill.pdf"
	assert.Equal(t, "2024-03-01_Electric_Bill.pdf", p.TargetName())
}

func TestPlan_Degraded(t *testing.T) {
	p := Plan{ClassificationSource: SourceAI, Reasoning: OracleFailedReasoning + ": timeout"}
	assert.True(t, p.Degraded())

	p.Confidence = 0.4
	assert.False(t, p.Degraded())

	rule := Plan{ClassificationSource: SourceRules, Reasoning: OracleFailedReasoning}
	assert.False(t, rule.Degraded())
}
