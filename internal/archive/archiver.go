// Package archive compresses finalized draft workspaces into single zip
// artifacts named after their draft IDs.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"draftforge/internal/logging"
	"draftforge/internal/workspace"
)

// Archiver produces workspace artifacts under a scratch directory.
type Archiver struct {
	dir    string
	logger *slog.Logger
}

// NewArchiver builds an archiver writing artifacts into dir.
func NewArchiver(dir string, logger *slog.Logger) *Archiver {
	return &Archiver{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "archiver"),
	}
}

// ArtifactPath derives the artifact location solely from the draft ID, so
// retrying the archive step is idempotent.
func (a *Archiver) ArtifactPath(draftID string) string {
	return filepath.Join(a.dir, draftID+".zip")
}

// Create compresses the entire workspace tree into the artifact for the
// workspace's draft ID, overwriting any stale artifact from a prior attempt.
// The zip is staged under a temporary name and renamed on success, so a
// corrupt artifact is never left in place.
func (a *Archiver) Create(ctx context.Context, ws *workspace.Workspace) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}

	final := a.ArtifactPath(ws.ID())
	staging := final + ".partial"

	if err := a.writeZip(ctx, ws.Path(), staging); err != nil {
		os.Remove(staging)
		return "", fmt.Errorf("archive workspace %s: %w", ws.ID(), err)
	}
	if err := os.Rename(staging, final); err != nil {
		os.Remove(staging)
		return "", fmt.Errorf("finalize artifact: %w", err)
	}

	info, err := os.Stat(final)
	if err != nil {
		return "", fmt.Errorf("stat artifact: %w", err)
	}
	logging.WithContext(ctx, a.logger).Info("artifact created",
		logging.String(logging.FieldEventType, "artifact_created"),
		logging.String("path", final),
		logging.Int64("size_bytes", info.Size()),
	)
	return final, nil
}

// Remove deletes the artifact for draftID if present.
func (a *Archiver) Remove(draftID string) error {
	err := os.Remove(a.ArtifactPath(draftID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (a *Archiver) writeZip(ctx context.Context, root, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(out)

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		name := filepath.ToSlash(rel)

		if entry.IsDir() {
			_, err := zw.Create(name + "/")
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		writer, err := zw.Create(name)
		if err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(writer, file)
		return err
	})

	if walkErr != nil {
		zw.Close()
		out.Close()
		return walkErr
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// List returns artifact filenames currently in the scratch directory, used
// by the CLI for diagnostics.
func (a *Archiver) List() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".zip") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
