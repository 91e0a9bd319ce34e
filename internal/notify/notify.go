// Package notify posts run outcomes to an optional callback endpoint so
// upstream services learn when a draft archive is durable.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"draftforge/internal/config"
	"draftforge/internal/logging"
	"draftforge/internal/storage"
)

// Event carries the outcome of a lifecycle run.
type Event struct {
	DraftID    string           `json:"draft_id"`
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	Receipt    *storage.Receipt `json:"receipt,omitempty"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Notifier delivers run outcomes. A Notifier with no URL is a no-op, so
// callers never need to branch on whether callbacks are configured.
type Notifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// New builds a notifier posting to url. An empty url disables delivery.
func New(url string, timeout time.Duration, logger *slog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logging.NewComponentLogger(logger, "notify"),
	}
}

// NewFromConfig wires the configured callback endpoint.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Notifier {
	return New(cfg.Callback.URL, time.Duration(cfg.Callback.TimeoutSeconds)*time.Second, logger)
}

// Enabled reports whether outcomes will actually be delivered.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

// Publish posts the event as JSON. Delivery failures are returned but never
// affect run state; callers log and move on.
func (n *Notifier) Publish(ctx context.Context, event Event) error {
	if !n.Enabled() {
		return nil
	}
	if event.FinishedAt.IsZero() {
		event.FinishedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode callback payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver callback: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback endpoint returned %s", resp.Status)
	}

	logging.WithContext(ctx, n.logger).Debug("callback delivered",
		logging.String(logging.FieldDraftID, event.DraftID),
		logging.String("status", event.Status),
	)
	return nil
}
