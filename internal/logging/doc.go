// Package logging assembles structured slog loggers and formatting helpers used
// across bidsprep.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so loader and association code
// can tag log lines with the session ID and the folder being processed. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
