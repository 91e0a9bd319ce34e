package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"draftforge/internal/services"
)

func newBufferLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelDebug)
	return slog.New(newConsoleHandler(buf, lvl)), buf
}

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	logger, buf := newBufferLogger(t)
	logger = NewComponentLogger(logger, "uploader")

	logger.Info("artifact stored", String("key", "drafts/d1.zip"), Int("size", 42))

	line := buf.String()
	if !strings.Contains(line, "INFO uploader: artifact stored") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "key=drafts/d1.zip") || !strings.Contains(line, "size=42") {
		t.Fatalf("missing attrs in line: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	logger, buf := newBufferLogger(t)
	logger.Warn("fetch retry", String("reason", "connection reset by peer"))
	if !strings.Contains(buf.String(), `reason="connection reset by peer"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestWithContextAddsDraftFields(t *testing.T) {
	logger, buf := newBufferLogger(t)
	ctx := services.WithDraftID(context.Background(), "d42")
	ctx = services.WithStage(ctx, "provision")

	WithContext(ctx, logger).Info("workspace ready")

	line := buf.String()
	if !strings.Contains(line, "draft_id=d42") || !strings.Contains(line, "stage=provision") {
		t.Fatalf("context fields missing: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
}
