// Package daemon runs the background draft archiver: a single-instance
// process that drains the run queue and maintains the working root.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"draftforge/internal/config"
	"draftforge/internal/lifecycle"
	"draftforge/internal/logging"
	"draftforge/internal/preflight"
	"draftforge/internal/runs"
	"draftforge/internal/worker"
	"draftforge/internal/workroot"
	"draftforge/internal/workspace"
)

// ErrAlreadyRunning indicates another daemon instance holds the lock.
var ErrAlreadyRunning = errors.New("another draftforge daemon instance is already running")

// Daemon coordinates the worker and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *runs.Store
	runner *lifecycle.Runner
	worker *worker.Worker

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// sweepInterval is how often the daemon re-scans the working root for
// abandoned workspaces after the startup sweep.
const sweepInterval = time.Hour

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	ActiveDrafts []string
	RunDBPath    string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *runs.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	runner, err := lifecycle.NewRunner(cfg, workspace.NewRegistry(), store, logger)
	if err != nil {
		return nil, fmt.Errorf("build runner: %w", err)
	}
	wrk, err := worker.New(cfg, store, runner, logger)
	if err != nil {
		return nil, fmt.Errorf("build worker: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "draftforged.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		runner:   runner,
		worker:   wrk,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, recovers state left by a previous process,
// and launches the worker.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	d.logPreflight(ctx)
	d.recover(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.worker.Start(runCtx); err != nil {
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start worker: %w", err)
	}

	if d.cfg.Workflow.StaleWorkspaceHours > 0 {
		d.wg.Add(1)
		go d.sweepLoop(runCtx)
	}

	d.running.Store(true)
	d.logger.Info("draftforge daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.worker.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("draftforge daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// logPreflight runs the environment checks and logs failures. The daemon
// starts regardless; transient problems surface again when runs execute.
func (d *Daemon) logPreflight(ctx context.Context) {
	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if result.Passed {
			d.logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
}

// recover fails runs interrupted by a previous shutdown and sweeps their
// stale workspaces so the working root holds only live drafts.
func (d *Daemon) recover(ctx context.Context) {
	if count, err := d.store.FailInFlight(ctx, runs.DaemonStopReason); err != nil {
		d.logger.Warn("failing interrupted runs failed", logging.Error(err))
	} else if count > 0 {
		d.logger.Info("failed interrupted runs", logging.Int64("count", count))
	}

	d.sweep(ctx)
}

// sweep removes workspaces older than the configured age, excluding drafts
// that are currently executing.
func (d *Daemon) sweep(ctx context.Context) {
	maxAge := time.Duration(d.cfg.Workflow.StaleWorkspaceHours) * time.Hour
	if maxAge <= 0 {
		return
	}
	active := make(map[string]struct{})
	for _, id := range d.runner.Registry().Active() {
		active[id] = struct{}{}
	}
	result := workroot.SweepStale(ctx, d.cfg.Paths.WorkingRoot, maxAge, active, d.logger)
	for _, sweepErr := range result.Errors {
		d.logger.Warn("workspace sweep error",
			logging.String("path", sweepErr.Path),
			logging.Error(sweepErr.Error),
		)
	}
}

// sweepLoop periodically re-runs the stale workspace sweep until ctx is done.
func (d *Daemon) sweepLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweep(ctx)
		}
	}
}

// RunHealth returns aggregate run diagnostics.
func (d *Daemon) RunHealth(ctx context.Context) (runs.HealthSummary, error) {
	if d.store == nil {
		return runs.HealthSummary{}, errors.New("run store unavailable")
	}
	return d.store.Health(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		ActiveDrafts: d.runner.Registry().Active(),
		RunDBPath:    d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
