package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	content := strings.Join([]string{
		"[paths]",
		`working_root = "` + filepath.Join(base, "work") + `"`,
		`templates_dir = "` + filepath.Join(base, "templates") + `"`,
		`archive_dir = "` + filepath.Join(base, "archives") + `"`,
		`log_dir = "` + filepath.Join(base, "logs") + `"`,
		"",
		"[storage]",
		`backend = "fs"`,
		`fs_root = "` + filepath.Join(base, "bucket") + `"`,
		"",
	}, "\n")
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := execute(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output = %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	// Refuses to overwrite.
	if _, err := execute(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init succeeded")
	}
}

func TestRunsListEmpty(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := execute(t, "--config", cfgPath, "runs", "list")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	if !strings.Contains(out, "No runs recorded") {
		t.Fatalf("output = %q", out)
	}
}

func TestSubmitQueuesRunAndRejectsDuplicate(t *testing.T) {
	cfgPath := writeTestConfig(t)

	manifest := filepath.Join(t.TempDir(), "draft.yaml")
	payload := strings.Join([]string{
		"draft_id: jy_30_cli",
		"template: vlog",
		"assets:",
		"  - url: https://example.com/bgm.mp3",
		"    path: assets/bgm.mp3",
		"    kind: audio",
		"",
	}, "\n")
	if err := os.WriteFile(manifest, []byte(payload), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	out, err := execute(t, "--config", cfgPath, "submit", manifest)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "jy_30_cli") {
		t.Fatalf("output = %q", out)
	}

	if _, err := execute(t, "--config", cfgPath, "submit", manifest); err == nil {
		t.Fatal("duplicate submit succeeded")
	}

	out, err = execute(t, "--config", cfgPath, "runs", "list")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	if !strings.Contains(out, "jy_30_cli") || !strings.Contains(out, "pending") {
		t.Fatalf("output = %q", out)
	}
}

func TestRunsShowUnknownDraft(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if _, err := execute(t, "--config", cfgPath, "runs", "show", "jy_31_none"); err == nil {
		t.Fatal("show for unknown draft succeeded")
	}
}
