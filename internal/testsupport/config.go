// Package testsupport provides shared fixtures for package tests: temp-dir
// configs, run stores, and template trees.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"draftforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Storage defaults to the filesystem backend so tests never touch the
// network. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkingRoot = filepath.Join(base, "work")
	cfgVal.Paths.TemplatesDir = filepath.Join(base, "templates")
	cfgVal.Paths.ArchiveDir = filepath.Join(base, "archives")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Storage.Backend = config.StorageBackendFS
	cfgVal.Storage.FSRoot = filepath.Join(base, "bucket")
	cfgVal.Storage.KeyPrefix = "drafts"
	cfgVal.Fetch.MaxAttempts = 2
	cfgVal.Fetch.RetryBaseMS = 1
	cfgVal.Workflow.PollIntervalSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithStorageBackend overrides the storage backend settings.
func WithStorageBackend(backend, endpoint, bucket string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Backend = backend
		b.cfg.Storage.Endpoint = endpoint
		b.cfg.Storage.Bucket = bucket
	}
}

// WithCallbackURL points the completion callback at a test server.
func WithCallbackURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Callback.URL = url
	}
}

// WriteTemplate materializes a template tree with the given relative files.
// With no files it writes the minimal metadata seed.
func WriteTemplate(t testing.TB, cfg *config.Config, name string, files map[string]string) {
	t.Helper()
	root := filepath.Join(cfg.Paths.TemplatesDir, name)
	if len(files) == 0 {
		files = map[string]string{"draft_content.json": "{}"}
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir template dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write template file %s: %v", rel, err)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkingRoot)
}
