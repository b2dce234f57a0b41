package executor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/sift/internal/model"
	"github.com/Veraticus/sift/internal/storage"
	"github.com/Veraticus/sift/internal/testutil"
)

type fakeTrash struct {
	err   error
	paths []string
	mu    sync.Mutex
}

func (f *fakeTrash) Trash(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.paths = append(f.paths, path)
	return os.Remove(path)
}

type fixture struct {
	store *storage.SQLiteStorage
	trash *fakeTrash
	logs  *bytes.Buffer
	dl    string
	areas string
	bkp   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		store: testutil.SetupTestStore(t),
		trash: &fakeTrash{},
		logs:  &bytes.Buffer{},
		dl:    filepath.Join(root, "downloads"),
		areas: filepath.Join(root, "areas"),
		bkp:   filepath.Join(root, "backups"),
	}
	require.NoError(t, os.MkdirAll(f.dl, 0o750))
	return f
}

func (f *fixture) executor(cfg Config) *Executor {
	logger := slog.New(slog.NewTextHandler(f.logs, nil))
	return New(f.store, cfg,
		WithTrash(f.trash),
		WithBackups(NewBackups(f.bkp, logger)),
		WithLogger(logger),
		WithClock(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }),
	)
}

func (f *fixture) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dl, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) // #nosec G304
	require.NoError(t, err)
	return string(data)
}

func TestExecute_Move(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.file(t, "2024_Tax_Return.pdf", "tax")
	plan := testutil.NewPlan(t, src).
		WithDestination(f.areas, "Finance", "Documents").
		WithStatus(model.StatusApproved).
		Save(ctx, f.store)

	res := f.executor(Config{Backup: true}).Execute(ctx, plan)
	require.True(t, res.Success, res.Message)

	dest := filepath.Join(f.areas, "Finance", "Documents", "2024_Tax_Return.pdf")
	assert.Equal(t, "tax", readFile(t, dest))
	assert.NoFileExists(t, src)
	assert.Equal(t, "tax", readFile(t, filepath.Join(f.bkp, "2024-06-01", "2024_Tax_Return.pdf")))

	got, err := f.store.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExecuted, got.Status)
	require.NotNil(t, got.ExecutedAt)
}

func TestExecute_CollisionNeverOverwrites(t *testing.T) {
	ctx := context.Background()

	for _, prior := range []int{1, 2, 5} {
		f := newFixture(t)
		destDir := filepath.Join(f.areas, "Work", "Documents")
		require.NoError(t, os.MkdirAll(destDir, 0o750))

		existing := []string{filepath.Join(destDir, "report.pdf")}
		for n := 1; n < prior; n++ {
			existing = append(existing, filepath.Join(destDir, "report-"+strconv.Itoa(n)+".pdf"))
		}
		for _, p := range existing {
			require.NoError(t, os.WriteFile(p, []byte("old"), 0o600))
		}

		src := f.file(t, "report.pdf", "new")
		plan := testutil.NewPlan(t, src).
			WithDestination(f.areas, "Work", "Documents").
			WithStatus(model.StatusApproved).
			Save(ctx, f.store)

		res := f.executor(Config{}).Execute(ctx, plan)
		require.True(t, res.Success, res.Message)

		want := filepath.Join(destDir, "report-"+strconv.Itoa(prior)+".pdf")
		assert.Equal(t, "new", readFile(t, want))
		assert.Contains(t, res.Message, want)
		for _, p := range existing {
			assert.Equal(t, "old", readFile(t, p), p)
		}
	}
}

func TestExecute_RenameInPlace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.file(t, "IMG_0001.jpg", "img")
	f.file(t, "2024-05-01-beach.jpg", "other")

	plan := testutil.NewPlan(t, src).
		WithAction(model.ActionRename).
		WithSuggestedName("2024-05-01-beach.jpg").
		WithStatus(model.StatusApproved).
		Save(ctx, f.store)

	res := f.executor(Config{}).Execute(ctx, plan)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "img", readFile(t, filepath.Join(f.dl, "2024-05-01-beach-1.jpg")))
	assert.Equal(t, "other", readFile(t, filepath.Join(f.dl, "2024-05-01-beach.jpg")))
}

func TestExecute_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("trashes after backup", func(t *testing.T) {
		f := newFixture(t)
		src := f.file(t, "Setup.dmg", "bin")
		plan := testutil.NewPlan(t, src).WithAction(model.ActionDelete).WithStatus(model.StatusApproved).Save(ctx, f.store)

		res := f.executor(Config{Backup: true}).Execute(ctx, plan)
		require.True(t, res.Success, res.Message)
		assert.Equal(t, []string{src}, f.trash.paths)
		assert.FileExists(t, filepath.Join(f.bkp, "2024-06-01", "Setup.dmg"))
	})

	t.Run("trash failure fails the plan", func(t *testing.T) {
		f := newFixture(t)
		f.trash.err = errors.New("finder refused")
		src := f.file(t, "Setup.dmg", "bin")
		plan := testutil.NewPlan(t, src).WithAction(model.ActionDelete).WithStatus(model.StatusApproved).Save(ctx, f.store)

		res := f.executor(Config{}).Execute(ctx, plan)
		assert.False(t, res.Success)

		got, err := f.store.GetPlan(ctx, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusFailed, got.Status)
		assert.Equal(t, "finder refused", got.ErrorMessage)
		assert.FileExists(t, src)
	})
}

func TestExecute_ArchiveWithoutDestination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.file(t, "old.zip", "zip")
	plan := testutil.NewPlan(t, src).WithAction(model.ActionArchive).WithStatus(model.StatusApproved).Save(ctx, f.store)

	archive := filepath.Join(f.areas, "Personal", "Archive")
	res := f.executor(Config{ArchiveRoot: archive}).Execute(ctx, plan)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "zip", readFile(t, filepath.Join(archive, "old.zip")))
}

func TestExecuteAllApproved_MissingSourceDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	gone := testutil.NewPlan(t, filepath.Join(f.dl, "vanished.pdf")).
		WithDestination(f.areas, "Finance", "Documents").
		WithStatus(model.StatusApproved).
		Save(ctx, f.store)
	src := f.file(t, "keep.txt", "k")
	skip := testutil.NewPlan(t, src).WithAction(model.ActionSkip).WithStatus(model.StatusApproved).Save(ctx, f.store)
	moved := testutil.NewPlan(t, f.file(t, "notes.txt", "n")).
		WithDestination(f.areas, "Personal", "Documents").
		WithStatus(model.StatusApproved).
		Save(ctx, f.store)
	testutil.NewPlan(t, f.file(t, "pending.txt", "p")).Save(ctx, f.store)

	var seen int
	results, err := f.executor(Config{}).ExecuteAllApproved(ctx, func(model.ExecutionResult) { seen++ })
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 3, seen)

	byID := map[string]model.ExecutionResult{}
	for _, r := range results {
		byID[r.PlanID] = r
	}
	assert.False(t, byID[gone.ID].Success)
	assert.Equal(t, MissingSourceMessage, byID[gone.ID].Message)
	assert.True(t, byID[skip.ID].Success)
	assert.True(t, byID[moved.ID].Success)

	failed, err := f.store.GetPlan(ctx, gone.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, failed.Status)
	assert.Equal(t, MissingSourceMessage, failed.ErrorMessage)

	skipped, err := f.store.GetPlan(ctx, skip.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExecuted, skipped.Status)
	assert.FileExists(t, src)
}

func TestExecute_DryRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.file(t, "report.pdf", "r")
	move := testutil.NewPlan(t, src).
		WithDestination(f.areas, "Work", "Documents").
		WithStatus(model.StatusApproved).
		Save(ctx, f.store)
	del := testutil.NewPlan(t, f.file(t, "junk.tmp", "j")).
		WithAction(model.ActionDelete).
		WithStatus(model.StatusApproved).
		Save(ctx, f.store)

	ex := f.executor(Config{DryRun: true, Backup: true})
	assert.True(t, ex.DryRun())
	results, err := ex.ExecuteAllApproved(ctx, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Success)
		assert.True(t, strings.HasPrefix(r.Message, "[dry-run]"), r.Message)
	}

	assert.FileExists(t, src)
	assert.NoDirExists(t, f.areas)
	assert.NoDirExists(t, f.bkp)
	assert.Empty(t, f.trash.paths)
	assert.Contains(t, f.logs.String(), "[dry-run]")

	for _, id := range []string{move.ID, del.ID} {
		got, err := f.store.GetPlan(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, got.Status)
	}
}

func TestExecuteIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pending := testutil.NewPlan(t, f.file(t, "a.txt", "a")).Save(ctx, f.store)
	approved := testutil.NewPlan(t, f.file(t, "b.txt", "b")).
		WithAction(model.ActionSkip).
		WithStatus(model.StatusApproved).
		Save(ctx, f.store)

	results, err := f.executor(Config{}).ExecuteIDs(ctx, []string{pending.ID, "missing", approved.ID}, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Message, "not approved")
	assert.False(t, results[1].Success)
	assert.True(t, results[2].Success)

	got, err := f.store.GetPlan(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}
