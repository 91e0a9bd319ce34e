package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"draftforge/internal/draft"
	"draftforge/internal/lifecycle"
	"draftforge/internal/logging"
	"draftforge/internal/runs"
	"draftforge/internal/testsupport"
	"draftforge/internal/workspace"
)

func submitJob(t *testing.T, store *runs.Store, job *draft.Job) {
	t.Helper()
	payload, err := job.EncodeJSON()
	if err != nil {
		t.Fatalf("encode job: %v", err)
	}
	if _, err := store.NewRun(context.Background(), job.DraftID, job.Template, string(payload)); err != nil {
		t.Fatalf("enqueue run: %v", err)
	}
}

func waitForStatus(t *testing.T, store *runs.Store, draftID string, want runs.Status) *runs.Run {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		run, err := store.GetByDraftID(context.Background(), draftID)
		if err != nil {
			t.Fatalf("GetByDraftID: %v", err)
		}
		if run != nil && run.Status == want {
			return run
		}
		time.Sleep(20 * time.Millisecond)
	}
	run, _ := store.GetByDraftID(context.Background(), draftID)
	t.Fatalf("run %s never reached %s (now %+v)", draftID, want, run)
	return nil
}

func TestWorkerDrainsPendingRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteTemplate(t, cfg, "vlog", nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("media"))
	}))
	t.Cleanup(server.Close)

	store := testsupport.MustOpenStore(t, cfg)
	runner, err := lifecycle.NewRunner(cfg, workspace.NewRegistry(), store, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	worker, err := New(cfg, store, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	submitJob(t, store, &draft.Job{
		DraftID:  "jy_10_aaaa",
		Template: "vlog",
		Assets: []draft.Asset{
			{URL: server.URL + "/a.mp3", Path: "a.mp3", Kind: draft.KindAudio},
		},
	})
	submitJob(t, store, &draft.Job{
		DraftID:  "jy_10_bbbb",
		Template: "vlog",
	})

	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer worker.Stop()

	first := waitForStatus(t, store, "jy_10_aaaa", runs.StatusCompleted)
	if first.ReceiptJSON == "" {
		t.Fatalf("run record has no receipt: %+v", first)
	}
	waitForStatus(t, store, "jy_10_bbbb", runs.StatusCompleted)

	if _, err := os.Stat(filepath.Join(cfg.Storage.FSRoot, "drafts", "jy_10_aaaa.zip")); err != nil {
		t.Fatalf("uploaded object missing: %v", err)
	}
}

func TestWorkerFailsRunWithCorruptPayload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner, err := lifecycle.NewRunner(cfg, workspace.NewRegistry(), store, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	worker, err := New(cfg, store, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := store.NewRun(context.Background(), "jy_11_bad", "vlog", "{not json"); err != nil {
		t.Fatalf("NewRun: %v", err)
	}

	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer worker.Stop()

	run := waitForStatus(t, store, "jy_11_bad", runs.StatusFailed)
	if run.ErrorMessage == "" {
		t.Fatalf("failed run has no error message: %+v", run)
	}
}

func TestWorkerStartTwiceFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner, err := lifecycle.NewRunner(cfg, workspace.NewRegistry(), store, logging.NewNop())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	worker, err := New(cfg, store, runner, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := worker.Start(context.Background()); err == nil {
		t.Fatal("second Start succeeded")
	}
	worker.Stop()

	// A stopped worker can be restarted.
	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	worker.Stop()
}
