package executor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	touch := func(name string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	assert.Equal(t, filepath.Join(dir, "a.txt"), uniquePath(filepath.Join(dir, "a.txt")))

	touch("a.txt")
	assert.Equal(t, filepath.Join(dir, "a-1.txt"), uniquePath(filepath.Join(dir, "a.txt")))

	touch("a-1.txt")
	touch("a-2.txt")
	assert.Equal(t, filepath.Join(dir, "a-3.txt"), uniquePath(filepath.Join(dir, "a.txt")))

	touch("Makefile")
	assert.Equal(t, filepath.Join(dir, "Makefile-1"), uniquePath(filepath.Join(dir, "Makefile")))

	touch("archive.tar.gz")
	assert.Equal(t, filepath.Join(dir, "archive.tar-1.gz"), uniquePath(filepath.Join(dir, "archive.tar.gz")))
}

func TestMoveFile_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("s"), 0o600))
	require.NoError(t, os.WriteFile(dst, []byte("d"), 0o600))

	require.Error(t, moveFile(src, dst))
	assert.Equal(t, "d", readFile(t, dst))
	assert.FileExists(t, src)
}

func TestBackups_Save(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "invoice.pdf")
	require.NoError(t, os.WriteFile(src, []byte("pdf"), 0o600))

	b := NewBackups(filepath.Join(dir, "backups"), nil)
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	first, err := b.Save(src, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(b.Root(), "2024-03-09", "invoice.pdf"), first)

	second, err := b.Save(src, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(b.Root(), "2024-03-09", "invoice_140507.pdf"), second)
	assert.Equal(t, "pdf", readFile(t, second))

	third, err := b.Save(src, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(b.Root(), "2024-03-09", "invoice_140507-1.pdf"), third)
}

func TestBackups_Prune(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"2024-01-01", "2024-02-20", "2024-03-01", "notes"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o750))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "2023-12-31"), nil, 0o600))

	b := NewBackups(root, nil)
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	removed, err := b.Prune(30*24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoDirExists(t, filepath.Join(root, "2024-01-01"))
	assert.DirExists(t, filepath.Join(root, "2024-02-20"))
	assert.DirExists(t, filepath.Join(root, "2024-03-01"))
	assert.DirExists(t, filepath.Join(root, "notes"))
	assert.FileExists(t, filepath.Join(root, "2023-12-31"))

	missing := NewBackups(filepath.Join(root, "nope"), nil)
	removed, err = missing.Prune(time.Hour, now)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
