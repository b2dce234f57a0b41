// Package testutil provides shared fixtures for tests that need a real store.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/sift/internal/storage"
)

// SetupTestStore returns a migrated in-memory store closed at test end.
func SetupTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	s, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
