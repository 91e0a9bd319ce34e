package workroot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"draftforge/internal/logging"
)

func makeWorkspaceDir(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return path
}

func TestSweepStaleRemovesOldWorkspaces(t *testing.T) {
	root := t.TempDir()
	old := makeWorkspaceDir(t, root, "jy_1_old", 48*time.Hour)
	fresh := makeWorkspaceDir(t, root, "jy_2_new", time.Minute)

	result := SweepStale(context.Background(), root, 24*time.Hour, nil, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("sweep errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != old {
		t.Fatalf("removed = %v", result.Removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh workspace disturbed: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("stale workspace still present: %v", err)
	}
}

func TestSweepStaleSkipsActiveDrafts(t *testing.T) {
	root := t.TempDir()
	busy := makeWorkspaceDir(t, root, "jy_3_busy", 48*time.Hour)

	active := map[string]struct{}{"jy_3_busy": {}}
	result := SweepStale(context.Background(), root, 24*time.Hour, active, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("active workspace removed: %v", result.Removed)
	}
	if _, err := os.Stat(busy); err != nil {
		t.Fatalf("active workspace missing: %v", err)
	}
}

func TestSweepStaleMissingRootIsQuiet(t *testing.T) {
	result := SweepStale(context.Background(), filepath.Join(t.TempDir(), "absent"), time.Hour, nil, nil)
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestListDirectories(t *testing.T) {
	root := t.TempDir()
	makeWorkspaceDir(t, root, "jy_4_a", time.Hour)
	if err := os.WriteFile(filepath.Join(root, "jy_4_a", "draft_content.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dirs, err := ListDirectories(root)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 || dirs[0].Name != "jy_4_a" {
		t.Fatalf("dirs = %+v", dirs)
	}
	if dirs[0].Size != 2 {
		t.Fatalf("size = %d", dirs[0].Size)
	}
}
