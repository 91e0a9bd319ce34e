package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"draftforge/internal/fileutil"
	"draftforge/internal/logging"
	"draftforge/internal/workspace"
)

// The original asset hosts reject generic client agents, so requests carry a
// browser user agent.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36"

// ErrIntegrity marks a download whose byte count did not match the declared
// content length.
var ErrIntegrity = errors.New("integrity error")

// AssetError is the terminal failure for one asset task after retries are
// exhausted. It carries the locator and the last underlying cause.
type AssetError struct {
	Locator  string
	Attempts int
	Err      error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("fetch asset %s: failed after %d attempt(s): %v", e.Locator, e.Attempts, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// Config controls retry and timeout behavior.
type Config struct {
	MaxAttempts int
	Timeout     time.Duration
	RetryBase   time.Duration
	UserAgent   string
}

// Fetcher downloads individual assets.
type Fetcher struct {
	client *http.Client
	cfg    Config
	logger *slog.Logger
}

// NewFetcher builds a fetcher. Zero config fields fall back to safe defaults.
func NewFetcher(cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "fetcher"),
	}
}

// Fetch downloads the task's asset to its target subpath inside workspaceDir.
// Each retry re-fetches from scratch; a failed attempt never leaves a partial
// file behind. On exhausted retries the task is marked failed and an
// AssetError is returned.
func (f *Fetcher) Fetch(ctx context.Context, task *workspace.AssetTask, workspaceDir string) error {
	target := filepath.Join(workspaceDir, task.Asset.Path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		err = fmt.Errorf("create asset directory: %w", err)
		task.MarkFailed(err)
		return &AssetError{Locator: task.Asset.URL, Attempts: task.Attempts(), Err: err}
	}

	logger := logging.WithContext(ctx, f.logger)
	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		task.MarkDownloading()
		err := f.attempt(ctx, task.Asset.URL, target)
		if err == nil {
			task.MarkVerified()
			logger.Debug("asset verified",
				logging.String("locator", task.Asset.URL),
				logging.String("path", task.Asset.Path),
				logging.Int("attempt", attempt),
			)
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt == f.cfg.MaxAttempts {
			break
		}

		delay := backoffDelay(f.cfg.RetryBase, attempt)
		logger.Warn("asset fetch attempt failed",
			logging.String(logging.FieldEventType, "asset_fetch_retry"),
			logging.String("locator", task.Asset.URL),
			logging.Int("attempt", attempt),
			logging.Duration("retry_in", delay),
			logging.Error(err),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			lastErr = ctx.Err()
		}
	}

	task.MarkFailed(lastErr)
	return &AssetError{Locator: task.Asset.URL, Attempts: task.Attempts(), Err: lastErr}
}

// attempt performs one download. Sources that resolve to a local file are
// copied directly, which the draft-editing layer uses for pre-staged media.
func (f *Fetcher) attempt(ctx context.Context, locator, target string) error {
	if info, err := os.Stat(locator); err == nil && info.Mode().IsRegular() {
		return fileutil.CopyFile(locator, target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	partial := target + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("create partial file: %w", err)
	}

	written, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(partial)
		return copyErr
	}
	if closeErr != nil {
		os.Remove(partial)
		return closeErr
	}

	if resp.ContentLength >= 0 && written != resp.ContentLength {
		os.Remove(partial)
		return fmt.Errorf("%w: wrote %d bytes, expected %d", ErrIntegrity, written, resp.ContentLength)
	}

	if err := os.Rename(partial, target); err != nil {
		os.Remove(partial)
		return fmt.Errorf("finalize asset file: %w", err)
	}
	return nil
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base << (attempt - 1)
	// Jitter up to half the delay spreads concurrent retries apart.
	return delay + time.Duration(rand.Int63n(int64(delay/2)+1))
}
