package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"draftforge/internal/config"
	"draftforge/internal/logging"
	"draftforge/internal/services"
)

// Uploader pushes archive artifacts to a storage client with bounded retries
// on transient failures.
type Uploader struct {
	client      Client
	keyPrefix   string
	maxAttempts int
	retryBase   time.Duration
	logger      *slog.Logger
}

// NewUploader builds an uploader around client.
func NewUploader(client Client, keyPrefix string, maxAttempts int, logger *slog.Logger) *Uploader {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Uploader{
		client:      client,
		keyPrefix:   keyPrefix,
		maxAttempts: maxAttempts,
		retryBase:   time.Second,
		logger:      logging.NewComponentLogger(logger, "uploader"),
	}
}

// NewUploaderFromConfig wires the configured backend into an uploader.
func NewUploaderFromConfig(cfg *config.Config, logger *slog.Logger) (*Uploader, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewUploader(client, cfg.Storage.KeyPrefix, cfg.Storage.MaxAttempts, logger), nil
}

// Key reports the object key the uploader will use for draftID.
func (u *Uploader) Key(draftID string) string {
	return ObjectKey(u.keyPrefix, draftID)
}

// Upload transfers the artifact at path under the key derived from draftID.
// The key depends only on the draft ID, so a retried run overwrites its own
// partial upload rather than duplicating it. Transient failures are retried
// with exponential backoff; permanent failures abort immediately.
func (u *Uploader) Upload(ctx context.Context, draftID, path string) (Receipt, error) {
	key := u.Key(draftID)
	log := logging.WithContext(ctx, u.logger)

	var lastErr error
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Receipt{}, err
		}

		receipt, err := u.put(ctx, key, path)
		if err == nil {
			log.Info("artifact uploaded",
				logging.String(logging.FieldEventType, "artifact_uploaded"),
				logging.String("key", receipt.Key),
				logging.Int64("size_bytes", receipt.Size),
				logging.Int("attempt", attempt),
			)
			return receipt, nil
		}
		lastErr = err
		if services.IsCancelled(err) || !services.IsTransient(err) {
			return Receipt{}, err
		}
		if attempt < u.maxAttempts {
			delay := u.retryBase << (attempt - 1)
			log.Warn("upload attempt failed, retrying",
				logging.String("key", key),
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay),
				logging.Error(err),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Receipt{}, ctx.Err()
			}
		}
	}
	return Receipt{}, fmt.Errorf("upload %s after %d attempts: %w", key, u.maxAttempts, lastErr)
}

func (u *Uploader) put(ctx context.Context, key, path string) (Receipt, error) {
	file, err := os.Open(path)
	if err != nil {
		return Receipt{}, services.Wrap(services.ErrPermanent, "upload", "open artifact", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Receipt{}, services.Wrap(services.ErrPermanent, "upload", "stat artifact", path, err)
	}
	return u.client.Put(ctx, key, file, info.Size(), contentTypeForKey(key))
}

// Exists reports whether the artifact for draftID is already durable.
func (u *Uploader) Exists(ctx context.Context, draftID string) (bool, error) {
	return u.client.Exists(ctx, u.Key(draftID))
}
