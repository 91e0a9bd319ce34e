// Package worker polls the run store for pending submissions and executes
// them through the lifecycle runner with bounded concurrency.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"draftforge/internal/config"
	"draftforge/internal/draft"
	"draftforge/internal/lifecycle"
	"draftforge/internal/logging"
	"draftforge/internal/runs"
)

// Worker drains the pending run queue.
type Worker struct {
	cfg    *config.Config
	store  *runs.Store
	runner *lifecycle.Runner
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a worker. The store and runner are required.
func New(cfg *config.Config, store *runs.Store, runner *lifecycle.Runner, logger *slog.Logger) (*Worker, error) {
	if cfg == nil || store == nil || runner == nil {
		return nil, errors.New("worker requires config, store, and runner")
	}
	return &Worker{
		cfg:    cfg,
		store:  store,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "worker"),
	}, nil
}

// Start launches the poll loop. It returns immediately; Stop joins it.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop(runCtx)
	return nil
}

// Stop cancels in-flight runs and waits for the loop to exit.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	interval := time.Duration(w.cfg.Workflow.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	slots := w.cfg.Workflow.MaxConcurrentDrafts
	if slots < 1 {
		slots = 1
	}
	sem := make(chan struct{}, slots)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var runWG sync.WaitGroup
	defer runWG.Wait()

	for {
		w.drain(ctx, sem, &runWG)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// drain claims pending runs while concurrency slots are free.
func (w *Worker) drain(ctx context.Context, sem chan struct{}, runWG *sync.WaitGroup) {
	for {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		default:
			return
		}

		run, err := w.store.ClaimNextPending(ctx)
		if err != nil {
			<-sem
			if ctx.Err() == nil {
				w.logger.Error("claim pending run failed", logging.Error(err))
			}
			return
		}
		if run == nil {
			<-sem
			return
		}

		runWG.Add(1)
		go func(run *runs.Run) {
			defer runWG.Done()
			defer func() { <-sem }()
			w.process(ctx, run)
		}(run)
	}
}

func (w *Worker) process(ctx context.Context, run *runs.Run) {
	logger := w.logger.With(logging.String(logging.FieldDraftID, run.DraftID))

	job, err := draft.DecodeJSON([]byte(run.JobJSON))
	if err != nil {
		logger.Error("stored job is invalid", logging.Error(err))
		finished := time.Now().UTC()
		run.SetFailed("invalid job payload: " + err.Error())
		run.FinishedAt = &finished
		if updateErr := w.store.Update(ctx, run); updateErr != nil {
			logger.Warn("run record update failed", logging.Error(updateErr))
		}
		return
	}

	logger.Info("draft run starting",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("template", job.Template),
		logging.Int("assets", len(job.Assets)),
	)
	// The runner records the outcome on the run row and handles cleanup.
	if _, err := w.runner.Run(ctx, job); err != nil {
		logger.Warn("draft run failed", logging.Error(err))
	}
}
