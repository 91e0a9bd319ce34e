package config

// Storage backend identifiers.
const (
	StorageBackendHTTP = "http"
	StorageBackendFS   = "fs"
)

const (
	defaultWorkingRoot  = "~/.local/share/draftforge/drafts"
	defaultTemplatesDir = "~/.local/share/draftforge/templates"
	defaultArchiveDir   = "~/.local/share/draftforge/archives"
	defaultLogDir       = "~/.local/share/draftforge/logs"

	defaultFetchMaxAttempts    = 3
	defaultFetchParallelism    = 4
	defaultFetchTimeoutSeconds = 180
	defaultFetchRetryBaseMS    = 500

	defaultStorageMaxAttempts    = 3
	defaultStorageTimeoutSeconds = 120

	defaultCallbackTimeoutSeconds = 10

	defaultPollIntervalSeconds = 5
	defaultMaxConcurrentDrafts = 2
	defaultStaleWorkspaceHours = 24
	defaultMinFreeSpaceGiB     = 5

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkingRoot:  defaultWorkingRoot,
			TemplatesDir: defaultTemplatesDir,
			ArchiveDir:   defaultArchiveDir,
			LogDir:       defaultLogDir,
		},
		Fetch: Fetch{
			MaxAttempts:    defaultFetchMaxAttempts,
			Parallelism:    defaultFetchParallelism,
			TimeoutSeconds: defaultFetchTimeoutSeconds,
			RetryBaseMS:    defaultFetchRetryBaseMS,
		},
		Storage: Storage{
			Backend:        StorageBackendHTTP,
			MaxAttempts:    defaultStorageMaxAttempts,
			TimeoutSeconds: defaultStorageTimeoutSeconds,
		},
		Callback: Callback{
			TimeoutSeconds: defaultCallbackTimeoutSeconds,
		},
		Workflow: Workflow{
			PollIntervalSeconds: defaultPollIntervalSeconds,
			MaxConcurrentDrafts: defaultMaxConcurrentDrafts,
			StaleWorkspaceHours: defaultStaleWorkspaceHours,
			MinFreeSpaceGiB:     defaultMinFreeSpaceGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
