// Package preflight validates the environment before the daemon or a run
// starts: directory permissions, free disk space, and storage reachability.
package preflight

import (
	"context"

	"draftforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Working root", cfg.Paths.WorkingRoot))
	results = append(results, CheckDirectoryAccess("Archive directory", cfg.Paths.ArchiveDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	if cfg.Paths.TemplatesDir != "" {
		results = append(results, CheckTemplatesDir(cfg.Paths.TemplatesDir))
	}

	if cfg.Workflow.MinFreeSpaceGiB > 0 {
		results = append(results, CheckFreeSpace(cfg.Paths.WorkingRoot, cfg.Workflow.MinFreeSpaceGiB))
	}

	results = append(results, CheckStorage(ctx, cfg))

	return results
}

// AllPassed reports whether every check succeeded.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
