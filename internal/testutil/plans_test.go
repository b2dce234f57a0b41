package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/sift/internal/model"
)

func TestPlanBuilder(t *testing.T) {
	ctx := context.Background()
	store := SetupTestStore(t)

	plan := NewPlan(t, "/downloads/statement.pdf").
		WithSuggestedName("2024-01-31-bank-statement.pdf").
		WithDestination("/areas", "Finance", "Banking").
		WithStatus(model.StatusApproved).
		Save(ctx, store)

	assert.Equal(t, "/areas/Finance/Banking/2024-01-31-bank-statement.pdf", plan.DestinationPath)

	got, err := store.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)

	del := NewPlan(t, "/downloads/Setup.dmg").
		WithDestination("/areas", "Personal", "Documents").
		WithAction(model.ActionDelete).
		Build()
	assert.Empty(t, del.DestinationPath)
	assert.NotEqual(t, plan.ID, del.ID)
}
