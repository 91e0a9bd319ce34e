package testsupport

import (
	"testing"

	"draftforge/internal/config"
	"draftforge/internal/runs"
)

// MustOpenStore opens a run store for the given config and fails the test on
// error. The store is closed automatically on cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *runs.Store {
	t.Helper()
	store, err := runs.Open(cfg)
	if err != nil {
		t.Fatalf("open run store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close run store: %v", err)
		}
	})
	return store
}
