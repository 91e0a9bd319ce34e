package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"draftforge/internal/services"
)

// FSClient stores objects under a local bucket directory. It backs tests and
// air-gapped deployments.
type FSClient struct {
	root string
}

// NewFSClient builds the filesystem backend rooted at root.
func NewFSClient(root string) *FSClient {
	return &FSClient{root: root}
}

// Put copies body into the bucket directory under key, atomically.
func (c *FSClient) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	dest := filepath.Join(c.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Receipt{}, services.Wrap(services.ErrPermanent, "upload", "create bucket directory", "", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return Receipt{}, services.Wrap(services.ErrPermanent, "upload", "stage object", "", err)
	}
	tmpPath := tmp.Name()

	written, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmpPath)
		if copyErr == nil {
			copyErr = closeErr
		}
		return Receipt{}, services.Wrap(services.ErrPermanent, "upload", "write object", key, copyErr)
	}
	if size >= 0 && written != size {
		os.Remove(tmpPath)
		return Receipt{}, services.Wrap(services.ErrPermanent, "upload", "write object",
			fmt.Sprintf("wrote %d bytes, expected %d", written, size), nil)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return Receipt{}, services.Wrap(services.ErrPermanent, "upload", "finalize object", key, err)
	}

	return Receipt{
		Key:        key,
		URL:        "file://" + dest,
		Size:       written,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// Exists reports whether key is present in the bucket directory.
func (c *FSClient) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(c.root, filepath.FromSlash(key)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
