package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"draftforge/internal/config"
	"draftforge/internal/storage"
)

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTemplatesDir verifies the template directory exists, is readable, and
// holds at least one template tree.
func CheckTemplatesDir(path string) Result {
	const name = "Templates directory"

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			count++
		}
	}
	if count == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no templates installed)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d template(s))", path, count)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minGiB of
// free space for workspaces and artifacts.
func CheckFreeSpace(path string, minGiB int) Result {
	const name = "Free space"

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	freeBytes := stat.Bavail * uint64(stat.Bsize)
	freeGiB := float64(freeBytes) / (1 << 30)
	if freeBytes < uint64(minGiB)<<30 {
		return Result{Name: name, Detail: fmt.Sprintf("%.1f GiB free, need %d GiB", freeGiB, minGiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%.1f GiB free", freeGiB)}
}

// CheckStorage verifies the configured storage backend is reachable by
// probing for a key that should not exist.
func CheckStorage(ctx context.Context, cfg *config.Config) Result {
	const name = "Object storage"

	client, err := storage.NewClient(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := client.Exists(checkCtx, storage.ObjectKey(cfg.Storage.KeyPrefix, ".preflight")); err != nil {
		return Result{Name: name, Detail: summarizeStorageError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeStorageError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "probe timed out (storage unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "probe timed out (storage unreachable)"
	}
	return err.Error()
}
