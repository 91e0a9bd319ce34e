package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkingRoot) == "" {
		return errors.New("paths.working_root must be set")
	}
	if strings.TrimSpace(c.Paths.TemplatesDir) == "" {
		return errors.New("paths.templates_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) == "" {
		return errors.New("paths.archive_dir must be set")
	}
	if c.Paths.WorkingRoot == c.Paths.TemplatesDir {
		return errors.New("paths.working_root and paths.templates_dir must differ")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.MaxAttempts < 1 {
		return errors.New("fetch.max_attempts must be at least 1")
	}
	if c.Fetch.Parallelism < 1 {
		return errors.New("fetch.parallelism must be at least 1")
	}
	if c.Fetch.TimeoutSeconds < 1 {
		return errors.New("fetch.timeout_seconds must be at least 1")
	}
	if c.Fetch.RetryBaseMS < 0 {
		return errors.New("fetch.retry_base_ms must not be negative")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageBackendHTTP:
		if c.Storage.Endpoint == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = "~/.config/draftforge/config.toml"
			}
			return fmt.Errorf("storage.endpoint is required for the http backend. Edit %s (create with 'draftforge config init')", defaultPath)
		}
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be set for the http backend")
		}
	case StorageBackendFS:
		if strings.TrimSpace(c.Storage.FSRoot) == "" {
			return errors.New("storage.fs_root must be set for the fs backend")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (expected %q or %q)", c.Storage.Backend, StorageBackendHTTP, StorageBackendFS)
	}
	if c.Storage.MaxAttempts < 1 {
		return errors.New("storage.max_attempts must be at least 1")
	}
	if c.Storage.TimeoutSeconds < 1 {
		return errors.New("storage.timeout_seconds must be at least 1")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.PollIntervalSeconds < 1 {
		return errors.New("workflow.poll_interval_seconds must be at least 1")
	}
	if c.Workflow.MaxConcurrentDrafts < 1 {
		return errors.New("workflow.max_concurrent_drafts must be at least 1")
	}
	if c.Workflow.StaleWorkspaceHours < 1 {
		return errors.New("workflow.stale_workspace_hours must be at least 1")
	}
	if c.Workflow.MinFreeSpaceGiB < 0 {
		return errors.New("workflow.min_free_space_gib must not be negative")
	}
	return nil
}
