package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkingRoot  string `toml:"working_root"`
	TemplatesDir string `toml:"templates_dir"`
	ArchiveDir   string `toml:"archive_dir"`
	LogDir       string `toml:"log_dir"`
}

// Fetch contains asset download behavior.
type Fetch struct {
	MaxAttempts    int `toml:"max_attempts"`
	Parallelism    int `toml:"parallelism"`
	TimeoutSeconds int `toml:"timeout_seconds"`
	RetryBaseMS    int `toml:"retry_base_ms"`
}

// Storage contains object storage destination configuration.
type Storage struct {
	Backend        string `toml:"backend"`
	Endpoint       string `toml:"endpoint"`
	Bucket         string `toml:"bucket"`
	KeyPrefix      string `toml:"key_prefix"`
	Token          string `toml:"token"`
	FSRoot         string `toml:"fs_root"`
	MaxAttempts    int    `toml:"max_attempts"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Callback contains the archive completion webhook configuration.
type Callback struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains daemon timing and concurrency limits.
type Workflow struct {
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	MaxConcurrentDrafts int `toml:"max_concurrent_drafts"`
	StaleWorkspaceHours int `toml:"stale_workspace_hours"`
	MinFreeSpaceGiB     int `toml:"min_free_space_gib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration document.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Fetch    Fetch    `toml:"fetch"`
	Storage  Storage  `toml:"storage"`
	Callback Callback `toml:"callback"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the canonical config file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/draftforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err = os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(defaultPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultPath, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return defaultPath, true, nil
}

// WriteSample writes the embedded sample configuration to path, creating
// parent directories as needed. It refuses to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories draftforge writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkingRoot, c.Paths.ArchiveDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Storage.Backend == StorageBackendFS && strings.TrimSpace(c.Storage.FSRoot) != "" {
		if err := os.MkdirAll(c.Storage.FSRoot, 0o755); err != nil {
			return fmt.Errorf("create storage directory %q: %w", c.Storage.FSRoot, err)
		}
	}
	return nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkingRoot, err = expandPath(c.Paths.WorkingRoot); err != nil {
		return fmt.Errorf("paths.working_root: %w", err)
	}
	if c.Paths.TemplatesDir, err = expandPath(c.Paths.TemplatesDir); err != nil {
		return fmt.Errorf("paths.templates_dir: %w", err)
	}
	if c.Paths.ArchiveDir, err = expandPath(c.Paths.ArchiveDir); err != nil {
		return fmt.Errorf("paths.archive_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Storage.FSRoot, err = expandPath(c.Storage.FSRoot); err != nil {
		return fmt.Errorf("storage.fs_root: %w", err)
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageBackendHTTP
	}
	c.Storage.Endpoint = strings.TrimRight(strings.TrimSpace(c.Storage.Endpoint), "/")
	c.Storage.Bucket = strings.Trim(strings.TrimSpace(c.Storage.Bucket), "/")
	c.Storage.KeyPrefix = strings.Trim(strings.TrimSpace(c.Storage.KeyPrefix), "/")
	if c.Storage.Token == "" {
		if value, ok := os.LookupEnv("DRAFTFORGE_STORAGE_TOKEN"); ok {
			c.Storage.Token = value
		}
	}
	c.Callback.URL = strings.TrimSpace(c.Callback.URL)

	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	abs, err := filepath.Abs(pathValue)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", pathValue, err)
	}
	return abs, nil
}
