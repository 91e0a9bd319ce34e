// Package logging constructs the slog loggers used across draftforge and
// provides shared attribute and context helpers.
package logging
