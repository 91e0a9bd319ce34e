// Package workroot maintains the working root that holds draft workspaces:
// sweeping stale directories left by crashed runs and reporting disk usage.
package workroot

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"draftforge/internal/logging"
)

// SweepResult contains the outcome of a workspace sweep.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a directory path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// SweepStale removes workspace directories older than maxAge, skipping any
// draft ID present in active. A crashed run leaves its workspace behind; the
// sweep reclaims it once nothing is working on it.
func SweepStale(ctx context.Context, workingRoot string, maxAge time.Duration, active map[string]struct{}, logger *slog.Logger) SweepResult {
	result := SweepResult{}

	workingRoot = strings.TrimSpace(workingRoot)
	if workingRoot == "" {
		return result
	}

	entries, err := os.ReadDir(workingRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: workingRoot, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}
		if _, busy := active[entry.Name()]; busy {
			continue
		}

		dirPath := filepath.Join(workingRoot, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale workspace",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "workspace_sweep_failed"),
				)
			}
		} else {
			result.Removed = append(result.Removed, dirPath)
			if logger != nil {
				logger.Info("removed stale workspace",
					logging.String("path", dirPath),
					logging.Duration("age", time.Since(info.ModTime())),
					logging.String(logging.FieldEventType, "workspace_sweep"),
				)
			}
		}
	}

	return result
}

// DirInfo contains metadata about a workspace directory.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// ListDirectories returns all workspace directories under the working root.
func ListDirectories(workingRoot string) ([]DirInfo, error) {
	workingRoot = strings.TrimSpace(workingRoot)
	if workingRoot == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(workingRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(workingRoot, entry.Name())
		size, _ := dirSize(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}
	return dirs, nil
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best effort
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
