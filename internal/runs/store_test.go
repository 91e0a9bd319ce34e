package runs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewRunRejectsDuplicateDraftID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.NewRun(ctx, "jy_1_abc", "vlog", "{}")
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	if run.Status != StatusPending {
		t.Fatalf("new run status = %s", run.Status)
	}

	if _, err := store.NewRun(ctx, "jy_1_abc", "vlog", "{}"); !errors.Is(err, ErrDuplicateDraft) {
		t.Fatalf("duplicate draft error = %v", err)
	}

	// The rejection is durable: a completed run still blocks resubmission.
	run.Status = StatusCompleted
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := store.NewRun(ctx, "jy_1_abc", "vlog", "{}"); !errors.Is(err, ErrDuplicateDraft) {
		t.Fatalf("duplicate after completion = %v", err)
	}
}

func TestUpdatePersistsLifecycleFields(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, err := store.NewRun(ctx, "jy_2_def", "vlog", `{"draft_id":"jy_2_def"}`)
	if err != nil {
		t.Fatalf("NewRun: %v", err)
	}

	finished := time.Now().UTC()
	run.Status = StatusCompleted
	run.ReceiptJSON = `{"key":"jy_2_def.zip"}`
	run.FinishedAt = &finished
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.GetByDraftID(ctx, "jy_2_def")
	if err != nil {
		t.Fatalf("GetByDraftID: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %s", got.Status)
	}
	if got.ReceiptJSON != `{"key":"jy_2_def.zip"}` {
		t.Fatalf("receipt = %q", got.ReceiptJSON)
	}
	if got.FinishedAt == nil {
		t.Fatal("finished_at not persisted")
	}
}

func TestClaimNextPendingIsOrderedAndExclusive(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, err := store.NewRun(ctx, "jy_3_one", "a", ""); err != nil {
		t.Fatalf("NewRun: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := store.NewRun(ctx, "jy_3_two", "b", ""); err != nil {
		t.Fatalf("NewRun: %v", err)
	}

	first, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if first == nil || first.DraftID != "jy_3_one" {
		t.Fatalf("claimed %+v, want oldest", first)
	}
	if first.Status != StatusProvisioned {
		t.Fatalf("claimed status = %s", first.Status)
	}

	second, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if second == nil || second.DraftID != "jy_3_two" {
		t.Fatalf("second claim = %+v", second)
	}

	third, err := store.ClaimNextPending(ctx)
	if err != nil {
		t.Fatalf("third claim: %v", err)
	}
	if third != nil {
		t.Fatalf("expected empty queue, got %+v", third)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	ok, _ := store.NewRun(ctx, "jy_4_ok", "", "")
	ok.Status = StatusCompleted
	if err := store.Update(ctx, ok); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := store.NewRun(ctx, "jy_4_wait", "", ""); err != nil {
		t.Fatalf("NewRun: %v", err)
	}

	pending, err := store.List(ctx, StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 || pending[0].DraftID != "jy_4_wait" {
		t.Fatalf("pending = %+v", pending)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d runs", len(all))
	}
}

func TestFailInFlightMarksProcessingRuns(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	run, _ := store.NewRun(ctx, "jy_5_mid", "", "")
	run.Status = StatusFetching
	if err := store.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := store.NewRun(ctx, "jy_5_wait", "", ""); err != nil {
		t.Fatalf("NewRun: %v", err)
	}

	count, err := store.FailInFlight(ctx, DaemonStopReason)
	if err != nil {
		t.Fatalf("FailInFlight: %v", err)
	}
	if count != 1 {
		t.Fatalf("failed %d runs, want 1", count)
	}

	got, _ := store.GetByDraftID(ctx, "jy_5_mid")
	if got.Status != StatusFailed || got.ErrorMessage != DaemonStopReason {
		t.Fatalf("run after FailInFlight = %+v", got)
	}
	waiting, _ := store.GetByDraftID(ctx, "jy_5_wait")
	if waiting.Status != StatusPending {
		t.Fatalf("pending run disturbed: %s", waiting.Status)
	}
}

func TestHealthSummarizesCounts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a, _ := store.NewRun(ctx, "jy_6_a", "", "")
	a.Status = StatusCompleted
	store.Update(ctx, a)
	b, _ := store.NewRun(ctx, "jy_6_b", "", "")
	b.SetFailed("boom")
	store.Update(ctx, b)
	c, _ := store.NewRun(ctx, "jy_6_c", "", "")
	c.Status = StatusArchived
	store.Update(ctx, c)
	store.NewRun(ctx, "jy_6_d", "", "")

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	want := HealthSummary{Total: 4, Pending: 1, Processing: 1, Completed: 1, Failed: 1}
	if health != want {
		t.Fatalf("health = %+v, want %+v", health, want)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus(" Fetching "); !ok || status != StatusFetching {
		t.Fatalf("ParseStatus = %v, %v", status, ok)
	}
	if _, ok := ParseStatus("bogus"); ok {
		t.Fatal("unknown status accepted")
	}
}
