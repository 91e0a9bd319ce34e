package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"draftforge/internal/logging"
	"draftforge/internal/runs"
	"draftforge/internal/testsupport"
)

func newDaemon(t *testing.T, store *runs.Store) (*Daemon, *runs.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	testsupport.WriteTemplate(t, cfg, "vlog", nil)
	if store == nil {
		store = testsupport.MustOpenStore(t, cfg)
	}
	daemon, err := New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return daemon, store
}

func TestStartStopLifecycle(t *testing.T) {
	daemon, _ := newDaemon(t, nil)

	if err := daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := daemon.Status()
	if !status.Running {
		t.Fatal("daemon not running after Start")
	}
	if _, err := os.Stat(status.LockFilePath); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}

	daemon.Stop()
	if daemon.Status().Running {
		t.Fatal("daemon still running after Stop")
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteTemplate(t, cfg, "vlog", nil)
	store := testsupport.MustOpenStore(t, cfg)

	first, err := New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		second.Stop()
		t.Fatalf("second Start error = %v, want ErrAlreadyRunning", err)
	}
}

func TestStartRecoversInterruptedRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteTemplate(t, cfg, "vlog", nil)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	run, err := store.NewRun(ctx, "jy_20_mid", "vlog", "{}")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	run.Status = runs.StatusFetching
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// A stale workspace left by the interrupted run.
	stale := filepath.Join(cfg.Paths.WorkingRoot, "jy_20_mid")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	old := time.Now().Add(-time.Duration(cfg.Workflow.StaleWorkspaceHours+1) * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	daemon, err := New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := daemon.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer daemon.Stop()

	got, err := store.GetByDraftID(ctx, "jy_20_mid")
	if err != nil {
		t.Fatalf("GetByDraftID: %v", err)
	}
	if got.Status != runs.StatusFailed || got.ErrorMessage != runs.DaemonStopReason {
		t.Fatalf("interrupted run = %+v", got)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale workspace survived recovery: %v", err)
	}
}

func TestRunHealth(t *testing.T) {
	daemon, store := newDaemon(t, nil)
	ctx := context.Background()

	if _, err := store.NewRun(ctx, "jy_21_a", "vlog", "{}"); err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	health, err := daemon.RunHealth(ctx)
	if err != nil {
		t.Fatalf("RunHealth: %v", err)
	}
	if health.Total != 1 || health.Pending != 1 {
		t.Fatalf("health = %+v", health)
	}
}
