// Package lifecycle orchestrates a draft archive run end to end: provision,
// fetch, finalize, archive, upload, clean up. A run either produces a durable
// artifact receipt or fails with the stage that broke, and in both cases the
// workspace and local artifact are removed.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"draftforge/internal/archive"
	"draftforge/internal/config"
	"draftforge/internal/draft"
	"draftforge/internal/fetch"
	"draftforge/internal/logging"
	"draftforge/internal/notify"
	"draftforge/internal/runs"
	"draftforge/internal/services"
	"draftforge/internal/storage"
	"draftforge/internal/template"
	"draftforge/internal/workspace"
)

// StageError reports the stage a run failed in along with the cause.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Runner executes draft archive runs. It is safe for concurrent use; the
// registry serializes runs per draft ID.
type Runner struct {
	cfg         *config.Config
	registry    *workspace.Registry
	provisioner *template.Provisioner
	fetcher     *fetch.Fetcher
	archiver    *archive.Archiver
	uploader    *storage.Uploader
	notifier    *notify.Notifier
	store       *runs.Store
	logger      *slog.Logger
}

// NewRunner wires a runner from configuration. The store and notifier may be
// nil; run records and callbacks are then skipped.
func NewRunner(cfg *config.Config, registry *workspace.Registry, store *runs.Store, logger *slog.Logger) (*Runner, error) {
	if registry == nil {
		registry = workspace.NewRegistry()
	}
	uploader, err := storage.NewUploaderFromConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("configure uploader: %w", err)
	}
	fetcher := fetch.NewFetcher(fetch.Config{
		MaxAttempts: cfg.Fetch.MaxAttempts,
		Timeout:     time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		RetryBase:   time.Duration(cfg.Fetch.RetryBaseMS) * time.Millisecond,
	}, logger)
	return &Runner{
		cfg:         cfg,
		registry:    registry,
		provisioner: template.NewProvisioner(cfg.Paths.TemplatesDir, logger),
		fetcher:     fetcher,
		archiver:    archive.NewArchiver(cfg.Paths.ArchiveDir, logger),
		uploader:    uploader,
		notifier:    notify.NewFromConfig(cfg, logger),
		store:       store,
		logger:      logging.NewComponentLogger(logger, "lifecycle"),
	}, nil
}

// Registry exposes the draft ID registry, used by the daemon's stale sweep to
// exclude active workspaces.
func (r *Runner) Registry() *workspace.Registry {
	return r.registry
}

// Run executes the full lifecycle for job and returns the upload receipt.
// Whatever happens, the workspace directory and the local artifact are gone
// when Run returns; only the remote object and the run record survive.
func (r *Runner) Run(ctx context.Context, job *draft.Job) (storage.Receipt, error) {
	if err := job.Validate(); err != nil {
		return storage.Receipt{}, &StageError{Stage: "validate", Err: err}
	}

	if err := r.registry.Acquire(job.DraftID); err != nil {
		return storage.Receipt{}, &StageError{Stage: "validate", Err: err}
	}
	defer r.registry.Release(job.DraftID)

	ctx = services.WithDraftID(ctx, job.DraftID)
	logger := logging.WithContext(ctx, r.logger)
	started := time.Now()

	ws := workspace.New(job.DraftID, r.cfg.Paths.WorkingRoot)
	defer r.cleanup(ctx, ws)

	receipt, err := r.execute(ctx, job, ws)
	if err != nil {
		ws.SetState(workspace.StateFailed)
		var stageErr *StageError
		stage := "run"
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}
		logger.Error("draft run failed",
			logging.String(logging.FieldEventType, "run_failed"),
			logging.String(logging.FieldStage, stage),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err),
		)
		r.recordFailure(ctx, job.DraftID, err)
		r.publish(ctx, notify.Event{
			DraftID: job.DraftID,
			Status:  string(runs.StatusFailed),
			Error:   err.Error(),
		})
		return storage.Receipt{}, err
	}

	logger.Info("draft run completed",
		logging.String(logging.FieldEventType, "run_completed"),
		logging.String("key", receipt.Key),
		logging.Duration("elapsed", time.Since(started)),
	)
	r.recordSuccess(ctx, job.DraftID, receipt)
	r.publish(ctx, notify.Event{
		DraftID: job.DraftID,
		Status:  string(runs.StatusCompleted),
		Receipt: &receipt,
	})
	return receipt, nil
}

func (r *Runner) execute(ctx context.Context, job *draft.Job, ws *workspace.Workspace) (storage.Receipt, error) {
	if err := r.provisioner.Provision(ctx, job.Template, ws); err != nil {
		return storage.Receipt{}, &StageError{Stage: "provision", Err: err}
	}
	ws.SetState(workspace.StateProvisioned)
	r.recordStatus(ctx, job.DraftID, runs.StatusProvisioned)

	for _, asset := range job.Assets {
		ws.AddAsset(asset)
	}
	ws.SetState(workspace.StateFetching)
	r.recordStatus(ctx, job.DraftID, runs.StatusFetching)
	if err := r.fetcher.FetchAll(ctx, ws, r.cfg.Fetch.Parallelism); err != nil {
		return storage.Receipt{}, &StageError{Stage: "fetch", Err: err}
	}

	document, err := job.MetadataJSON()
	if err != nil {
		return storage.Receipt{}, &StageError{Stage: "finalize", Err: err}
	}
	if err := ws.FinalizeMetadata(document); err != nil {
		return storage.Receipt{}, &StageError{Stage: "finalize", Err: err}
	}
	ws.SetState(workspace.StateFinalized)
	r.recordStatus(ctx, job.DraftID, runs.StatusFinalized)

	artifact, err := r.archiver.Create(ctx, ws)
	if err != nil {
		return storage.Receipt{}, &StageError{Stage: "archive", Err: err}
	}
	ws.SetState(workspace.StateArchived)
	r.recordStatus(ctx, job.DraftID, runs.StatusArchived)

	receipt, err := r.uploader.Upload(ctx, job.DraftID, artifact)
	if err != nil {
		return storage.Receipt{}, &StageError{Stage: "upload", Err: err}
	}
	ws.SetState(workspace.StateUploaded)
	r.recordStatus(ctx, job.DraftID, runs.StatusUploaded)

	return receipt, nil
}

// cleanup removes the workspace and the local artifact. It runs on every exit
// path and never uses the run context, so a cancelled run still cleans up.
func (r *Runner) cleanup(ctx context.Context, ws *workspace.Workspace) {
	logger := logging.WithContext(ctx, r.logger)
	if err := ws.Remove(); err != nil {
		logger.Warn("workspace removal failed",
			logging.String(logging.FieldEventType, "cleanup_failed"),
			logging.String("path", ws.Path()),
			logging.Error(err),
		)
	}
	if err := r.archiver.Remove(ws.ID()); err != nil {
		logger.Warn("artifact removal failed",
			logging.String(logging.FieldEventType, "cleanup_failed"),
			logging.Error(err),
		)
	}
	if ws.State() != workspace.StateFailed {
		ws.SetState(workspace.StateCleaned)
	}
}

func (r *Runner) recordStatus(ctx context.Context, draftID string, status runs.Status) {
	if r.store == nil {
		return
	}
	run, err := r.store.GetByDraftID(ctx, draftID)
	if err != nil || run == nil || run.IsTerminal() {
		return
	}
	run.Status = status
	if err := r.store.Update(ctx, run); err != nil {
		logging.WithContext(ctx, r.logger).Warn("run record update failed", logging.Error(err))
	}
}

func (r *Runner) recordSuccess(ctx context.Context, draftID string, receipt storage.Receipt) {
	if r.store == nil {
		return
	}
	run, err := r.store.GetByDraftID(ctx, draftID)
	if err != nil || run == nil {
		return
	}
	if encoded, err := json.Marshal(receipt); err == nil {
		run.ReceiptJSON = string(encoded)
	}
	finished := time.Now().UTC()
	run.Status = runs.StatusCompleted
	run.ErrorMessage = ""
	run.FinishedAt = &finished
	if err := r.store.Update(ctx, run); err != nil {
		logging.WithContext(ctx, r.logger).Warn("run record update failed", logging.Error(err))
	}
}

func (r *Runner) recordFailure(ctx context.Context, draftID string, cause error) {
	if r.store == nil {
		return
	}
	run, err := r.store.GetByDraftID(ctx, draftID)
	if err != nil || run == nil {
		return
	}
	finished := time.Now().UTC()
	run.SetFailed(cause.Error())
	run.FinishedAt = &finished
	if err := r.store.Update(ctx, run); err != nil {
		logging.WithContext(ctx, r.logger).Warn("run record update failed", logging.Error(err))
	}
}

// publish delivers the outcome callback on a fresh context so a cancelled run
// still reports its failure.
func (r *Runner) publish(ctx context.Context, event notify.Event) {
	if r.notifier == nil || !r.notifier.Enabled() {
		return
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := r.notifier.Publish(notifyCtx, event); err != nil {
		logging.WithContext(ctx, r.logger).Warn("outcome callback failed", logging.Error(err))
	}
}
