// Package logging assembles structured slog loggers and formatting helpers used
// across scribe.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code can tag log lines with job
// IDs, stage names, and correlation IDs. The package also provides a no-op
// logger for tests and for wiring code that runs without a configured sink.
package logging
