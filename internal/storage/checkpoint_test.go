package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckpointFixture(t *testing.T) (*SQLiteStorage, *CheckpointManager) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "sift.db")
	s, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	cm, err := s.NewCheckpointManager()
	require.NoError(t, err)

	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	cm.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s, cm
}

func TestNewCheckpointManager_RejectsMemory(t *testing.T) {
	s := newTestStore(t)
	_, err := s.NewCheckpointManager()
	require.ErrorIs(t, err, ErrEphemeralDatabase)
}

func TestCheckpointManager_CreateAndInfo(t *testing.T) {
	ctx := context.Background()
	s, cm := newCheckpointFixture(t)

	require.NoError(t, s.SavePlan(ctx, pendingPlan("p1", "/downloads/a.pdf")))
	require.NoError(t, s.SavePlan(ctx, pendingPlan("p2", "/downloads/b.pdf")))
	require.NoError(t, s.SaveCorrection(ctx, correction("a.pdf", "", "alpha")))

	info, err := cm.Create(ctx, "before-cleanup", "manual snapshot")
	require.NoError(t, err)
	assert.Equal(t, "before-cleanup", info.ID)
	assert.Equal(t, 2, info.Plans)
	assert.Equal(t, 1, info.Corrections)
	assert.Equal(t, 2, info.Transitions)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
	assert.False(t, info.IsAuto)
	assert.Positive(t, info.FileSize)

	assert.FileExists(t, filepath.Join(cm.Dir(), "before-cleanup.db"))
	assert.FileExists(t, filepath.Join(cm.Dir(), "before-cleanup.meta.json"))

	loaded, err := cm.Info(ctx, "before-cleanup")
	require.NoError(t, err)
	assert.Equal(t, info.Plans, loaded.Plans)
	assert.Equal(t, "manual snapshot", loaded.Description)

	_, err = cm.Create(ctx, "before-cleanup", "again")
	require.ErrorIs(t, err, ErrCheckpointExists)

	_, err = cm.Info(ctx, "missing")
	require.ErrorIs(t, err, ErrCheckpointNotFound)
}

func TestCheckpointManager_InvalidNames(t *testing.T) {
	ctx := context.Background()
	_, cm := newCheckpointFixture(t)

	for _, name := range []string{"../escape", "a/b", `a\b`} {
		t.Run(name, func(t *testing.T) {
			_, err := cm.Create(ctx, name, "")
			require.ErrorIs(t, err, ErrInvalidCheckpoint)
			require.ErrorIs(t, cm.Restore(ctx, name), ErrInvalidCheckpoint)
			require.ErrorIs(t, cm.Delete(ctx, name), ErrInvalidCheckpoint)
		})
	}
}

func TestCheckpointManager_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	_, cm := newCheckpointFixture(t)

	_, err := cm.Create(ctx, "", "first")
	require.NoError(t, err)
	_, err = cm.Create(ctx, "", "second")
	require.NoError(t, err)

	list, err := cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Description)
	assert.Equal(t, "first", list[1].Description)
}

func TestCheckpointManager_Delete(t *testing.T) {
	ctx := context.Background()
	_, cm := newCheckpointFixture(t)

	_, err := cm.Create(ctx, "doomed", "")
	require.NoError(t, err)
	require.NoError(t, cm.Delete(ctx, "doomed"))

	_, err = os.Stat(filepath.Join(cm.Dir(), "doomed.db"))
	assert.True(t, os.IsNotExist(err))
	require.ErrorIs(t, cm.Delete(ctx, "doomed"), ErrCheckpointNotFound)
}

func TestCheckpointManager_Restore(t *testing.T) {
	ctx := context.Background()
	s, cm := newCheckpointFixture(t)

	require.NoError(t, s.SavePlan(ctx, pendingPlan("keep", "/downloads/a.pdf")))
	_, err := cm.Create(ctx, "baseline", "")
	require.NoError(t, err)

	require.NoError(t, s.SavePlan(ctx, pendingPlan("later", "/downloads/b.pdf")))
	require.NoError(t, cm.Restore(ctx, "baseline"))

	reopened, err := NewSQLiteStorage(s.Path())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	_, err = reopened.GetPlan(ctx, "keep")
	require.NoError(t, err)
	_, err = reopened.GetPlan(ctx, "later")
	require.ErrorIs(t, err, ErrPlanNotFound)

	require.ErrorIs(t, cm.Restore(ctx, "missing"), ErrCheckpointNotFound)
}

func TestCheckpointManager_AutoCheckpointPrunes(t *testing.T) {
	ctx := context.Background()
	_, cm := newCheckpointFixture(t)
	cm.keepAuto = 2

	_, err := cm.Create(ctx, "manual", "kept regardless")
	require.NoError(t, err)

	for range 4 {
		info, err := cm.AutoCheckpoint(ctx, "execute")
		require.NoError(t, err)
		assert.True(t, info.IsAuto)
	}

	list, err := cm.List(ctx)
	require.NoError(t, err)

	var auto, manual int
	for _, cp := range list {
		if cp.IsAuto {
			auto++
		} else {
			manual++
		}
	}
	assert.Equal(t, 2, auto)
	assert.Equal(t, 1, manual)
}

func TestCheckpointMetadata_Info(t *testing.T) {
	meta := CheckpointMetadata{
		ID:        "x",
		RowCounts: map[string]int{"file_plans": 3, "corrections": 2, "plan_status_history": 7},
	}
	info := meta.info()
	assert.Equal(t, 3, info.Plans)
	assert.Equal(t, 2, info.Corrections)
	assert.Equal(t, 7, info.Transitions)
}
