// Package storage transfers archive artifacts to durable object storage and
// returns stable receipts. Two backends exist: an HTTP object store and a
// local filesystem bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"draftforge/internal/config"
)

// Receipt is the stable reference returned after a durable upload. It is the
// only output of a lifecycle run that outlives the workspace.
type Receipt struct {
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Client is the object storage surface the uploader depends on. Both
// operations are idempotent: re-putting a key overwrites.
type Client interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (Receipt, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// NewClient selects a backend from configuration.
func NewClient(cfg *config.Config) (Client, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendHTTP:
		return NewHTTPClient(HTTPConfig{
			Endpoint: cfg.Storage.Endpoint,
			Bucket:   cfg.Storage.Bucket,
			Token:    cfg.Storage.Token,
			Timeout:  time.Duration(cfg.Storage.TimeoutSeconds) * time.Second,
		}), nil
	case config.StorageBackendFS:
		return NewFSClient(cfg.Storage.FSRoot), nil
	default:
		return nil, fmt.Errorf("storage backend %q not supported", cfg.Storage.Backend)
	}
}

// ObjectKey derives the storage key for a draft artifact.
func ObjectKey(prefix, draftID string) string {
	return path.Join(prefix, draftID+".zip")
}

// contentTypeForKey maps artifact extensions to MIME types.
func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".zip":
		return "application/zip"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
