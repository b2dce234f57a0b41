// Package model defines the core domain models used throughout the application.
package model

import (
	"path/filepath"
	"strings"
	"time"
)

// Action is the operation a plan proposes for a single item.
type Action string

// Action constants.
const (
	ActionMove    Action = "move"
	ActionDelete  Action = "delete"
	ActionArchive Action = "archive"
	ActionSkip    Action = "skip"
	ActionRename  Action = "rename"
)

// AllActions lists every action in display order.
var AllActions = []Action{ActionMove, ActionDelete, ActionArchive, ActionSkip, ActionRename}

// ParseAction converts a free-form string into an Action.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllActions {
		if a == known {
			return a, true
		}
	}
	return "", false
}

// Relocates reports whether the action moves the item into the areas tree.
func (a Action) Relocates() bool {
	return a == ActionMove || a == ActionArchive
}

// PlanStatus is a state in the plan lifecycle.
type PlanStatus string

// Plan status constants.
const (
	StatusPending  PlanStatus = "pending"
	StatusApproved PlanStatus = "approved"
	StatusRejected PlanStatus = "rejected"
	StatusRevised  PlanStatus = "revised"
	StatusExecuted PlanStatus = "executed"
	StatusFailed   PlanStatus = "failed"
)

// AllStatuses lists every plan status.
var AllStatuses = []PlanStatus{
	StatusPending, StatusApproved, StatusRejected, StatusRevised, StatusExecuted, StatusFailed,
}

var transitions = map[PlanStatus][]PlanStatus{
	StatusPending:  {StatusApproved, StatusRejected, StatusRevised},
	StatusApproved: {StatusExecuted, StatusFailed},
}

// ParseStatus converts a string into a PlanStatus.
func ParseStatus(s string) (PlanStatus, bool) {
	st := PlanStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// CanTransition reports whether a plan may move from one status to another.
func CanTransition(from, to PlanStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s PlanStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// ClassificationSource records which stage produced a plan.
type ClassificationSource string

// Classification source constants.
const (
	SourceRules   ClassificationSource = "rules"
	SourceLearned ClassificationSource = "learned"
	SourceAI      ClassificationSource = "ai"
)

// PlanMetadata holds the optional pattern hints the oracle may attach to a plan.
type PlanMetadata struct {
	ExtractedPattern  string   `json:"extracted_pattern,omitempty"`
	ExtractedKeywords []string `json:"extracted_keywords,omitempty"`
}

// IsZero reports whether no hints are present.
func (m PlanMetadata) IsZero() bool {
	return m.ExtractedPattern == "" && len(m.ExtractedKeywords) == 0
}

// Plan is a proposed single-item operation and its lifecycle state.
type Plan struct {
	CreatedAt            time.Time
	ExecutedAt           *time.Time
	Metadata             PlanMetadata
	ID                   string
	SourcePath           string
	Action               Action
	DestinationPath      string
	Category             Category
	Domain               string
	Subfolder            string
	Reasoning            string
	ClassificationSource ClassificationSource
	Status               PlanStatus
	ErrorMessage         string
	SuggestedName        string
	UserFeedback         string
	OriginalPlanID       string
	Confidence           float64
	RevisionCount        int
}

// SourceName returns the base name of the source item.
func (p Plan) SourceName() string {
	return filepath.Base(p.SourcePath)
}

// OracleFailedReasoning prefixes the reasoning of a plan whose AI call failed.
const OracleFailedReasoning = "AI classification failed"

// Degraded reports whether the plan stands in for a failed AI call.
func (p Plan) Degraded() bool {
	return p.ClassificationSource == SourceAI && p.Confidence == 0 &&
		strings.HasPrefix(p.Reasoning, OracleFailedReasoning)
}

// TargetName is the file name the item will carry after relocation.
func (p Plan) TargetName() string {
	if p.SuggestedName != "" {
		return p.SuggestedName
	}
	return p.SourceName()
}

// StatusChange is one recorded transition of a plan.
type StatusChange struct {
	ChangedAt time.Time
	PlanID    string
	From      PlanStatus
	To        PlanStatus
	Note      string
}

// ExecutionResult reports the outcome of executing one plan.
type ExecutionResult struct {
	PlanID  string
	Message string
	Success bool
}

// Summary aggregates pending plans for display.
type Summary struct {
	ByAction            map[Action]int
	ByDomain            map[string]int
	ByCategory          map[Category]int
	Total               int
	EstimatedFreedBytes int64
}
