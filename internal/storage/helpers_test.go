package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Veraticus/sift/internal/model"
)

// newTestStore returns a migrated in-memory store whose clock advances one
// second per reading.
func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()

	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))

	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func pendingPlan(id, source string) *model.Plan {
	return &model.Plan{
		ID:                   id,
		SourcePath:           source,
		Action:               model.ActionMove,
		Domain:               string(model.DomainFinance),
		Subfolder:            "Taxes",
		Category:             model.CategoryDocument,
		DestinationPath:      "/areas/Finance/Taxes/" + id + ".pdf",
		Confidence:           0.85,
		Reasoning:            "Matched rule: financial_keywords",
		ClassificationSource: model.SourceRules,
		Status:               model.StatusPending,
	}
}
