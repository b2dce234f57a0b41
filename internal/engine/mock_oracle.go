package engine

import (
	"context"
	"sync"

	"github.com/Veraticus/sift/internal/llm"
	"github.com/Veraticus/sift/internal/model"
)

// MockOracle is a test implementation of the Oracle interface. Verdicts
// are looked up by item name, falling back to Default.
type MockOracle struct {
	Err         error
	PatternErr  error
	Verdicts    map[string]llm.Verdict
	Pattern     llm.Pattern
	calls       []MockOracleCall
	Default     llm.Verdict
	Limit       int
	BatchAnswer int
	mu          sync.Mutex
}

// MockOracleCall records details of one oracle request.
type MockOracleCall struct {
	Revision    *llm.Revision
	Method      string
	Names       []string
	Corrections int
}

// NewMockOracle creates a mock that moves everything to Personal.
func NewMockOracle() *MockOracle {
	return &MockOracle{
		Verdicts: make(map[string]llm.Verdict),
		Default: llm.Verdict{
			Action:     model.ActionMove,
			Label:      string(model.DomainPersonal),
			Category:   model.CategoryDocument,
			Confidence: 0.9,
			Reasoning:  "mock classification",
		},
		Limit:       llm.MaxFileBatch,
		BatchAnswer: -1,
	}
}

// Classify returns the scripted verdict for facts.Name.
func (m *MockOracle) Classify(_ context.Context, facts model.Facts, corrections []model.Correction, rev *llm.Revision) (llm.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockOracleCall{
		Method:      "Classify",
		Names:       []string{facts.Name},
		Corrections: len(corrections),
		Revision:    rev,
	})
	if m.Err != nil {
		return llm.Verdict{}, m.Err
	}
	return m.verdictFor(facts.Name), nil
}

// ClassifyBatch answers the first BatchAnswer items (all when negative).
func (m *MockOracle) ClassifyBatch(_ context.Context, items []model.Facts, corrections []model.Correction) ([]llm.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, len(items))
	for i, f := range items {
		names[i] = f.Name
	}
	m.calls = append(m.calls, MockOracleCall{Method: "ClassifyBatch", Names: names, Corrections: len(corrections)})
	if m.Err != nil {
		return nil, m.Err
	}

	n := len(items)
	if m.BatchAnswer >= 0 && m.BatchAnswer < n {
		n = m.BatchAnswer
	}
	out := make([]llm.Verdict, n)
	for i := range n {
		v := m.verdictFor(items[i].Name)
		v.Index = i
		out[i] = v
	}
	return out, nil
}

// ExtractPattern returns Pattern.
func (m *MockOracle) ExtractPattern(_ context.Context, c model.Correction) (llm.Pattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockOracleCall{Method: "ExtractPattern", Names: []string{c.OriginalFilename}})
	if m.Err != nil {
		return llm.Pattern{}, m.Err
	}
	if m.PatternErr != nil {
		return llm.Pattern{}, m.PatternErr
	}
	return m.Pattern, nil
}

// BatchLimit implements Oracle.
func (m *MockOracle) BatchLimit() int {
	return m.Limit
}

// GetCalls returns all recorded calls for verification in tests.
func (m *MockOracle) GetCalls() []MockOracleCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]MockOracleCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

func (m *MockOracle) verdictFor(name string) llm.Verdict {
	if v, ok := m.Verdicts[name]; ok {
		return v
	}
	return m.Default
}
