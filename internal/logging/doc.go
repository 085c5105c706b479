// Package logging assembles structured slog loggers and formatting helpers used
// across mediacheck.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so scan code can tag log lines
// with the run identifier, component, and the path being handled. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
