// Package testutil provides shared test fixtures for the miles-to-go
// project.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/miles-to-go/internal/store"
)

// SetupTestStore creates an in-memory document store, migrated and ready
// for use. It is closed automatically when the test finishes.
func SetupTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test store: %v", err)
	}

	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("failed to close test store: %v", err)
		}
	})

	return st
}
