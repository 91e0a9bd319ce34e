package preflight

import (
	"context"
	"path/filepath"
	"testing"

	"draftforge/internal/testsupport"
)

func TestRunAllPassesOnHealthyConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteTemplate(t, cfg, "vlog", nil)
	cfg.Workflow.MinFreeSpaceGiB = 0

	results := RunAll(context.Background(), cfg)
	if len(results) == 0 {
		t.Fatal("no checks ran")
	}
	for _, result := range results {
		if !result.Passed {
			t.Errorf("check %q failed: %s", result.Name, result.Detail)
		}
	}
	if !AllPassed(results) {
		t.Fatal("AllPassed = false")
	}
}

func TestCheckDirectoryAccessMissing(t *testing.T) {
	result := CheckDirectoryAccess("Working root", filepath.Join(t.TempDir(), "absent"))
	if result.Passed {
		t.Fatal("missing directory passed")
	}
}

func TestCheckTemplatesDirRequiresTemplates(t *testing.T) {
	empty := t.TempDir()
	result := CheckTemplatesDir(empty)
	if result.Passed {
		t.Fatalf("empty templates dir passed: %s", result.Detail)
	}
}

func TestCheckFreeSpaceUnreasonableFloorFails(t *testing.T) {
	// No test host has an exabyte free.
	result := CheckFreeSpace(t.TempDir(), 1<<30)
	if result.Passed {
		t.Fatalf("impossible floor passed: %s", result.Detail)
	}
}

func TestCheckStorageFSBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	result := CheckStorage(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("fs backend check failed: %s", result.Detail)
	}
}
