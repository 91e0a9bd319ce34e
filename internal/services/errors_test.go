package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	underlying := errors.New("connection reset")
	err := Wrap(ErrTransient, "upload", "put artifact", "storage unreachable", underlying)
	if !errors.Is(err, ErrTransient) {
		t.Fatal("expected transient marker")
	}
	if !errors.Is(err, underlying) {
		t.Fatal("expected underlying error to be wrapped")
	}
	for _, fragment := range []string{"upload", "put artifact", "storage unreachable"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error %q missing fragment %q", err, fragment)
		}
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := Wrap(nil, "fetch", "", "", nil)
	if !IsTransient(err) {
		t.Fatal("nil marker should default to transient")
	}
}

func TestWrapEmptyDetail(t *testing.T) {
	err := Wrap(ErrValidation, "", "", "", nil)
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(context.Canceled) {
		t.Fatal("context.Canceled should classify as cancelled")
	}
	if !IsCancelled(fmt.Errorf("run aborted: %w", ErrCancelled)) {
		t.Fatal("wrapped ErrCancelled should classify as cancelled")
	}
	if IsCancelled(errors.New("disk full")) {
		t.Fatal("unrelated error should not classify as cancelled")
	}
}

func TestContextAnnotations(t *testing.T) {
	ctx := context.Background()
	ctx = WithDraftID(ctx, "d1")
	ctx = WithStage(ctx, "archive")
	ctx = WithRequestID(ctx, "req-9")

	if id, ok := DraftIDFromContext(ctx); !ok || id != "d1" {
		t.Fatalf("draft id: got %q ok=%v", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "archive" {
		t.Fatalf("stage: got %q ok=%v", stage, ok)
	}
	if rid, ok := RequestIDFromContext(ctx); !ok || rid != "req-9" {
		t.Fatalf("request id: got %q ok=%v", rid, ok)
	}
	if _, ok := DraftIDFromContext(context.Background()); ok {
		t.Fatal("empty context should carry no draft id")
	}
}
