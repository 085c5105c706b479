// Package services defines shared utilities consumed by the validation,
// archive, and remux components and their external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, component names, and item paths for
//     logging.
//   - Structured error markers plus the Wrap helper that separate fatal
//     configuration failures from recordable tool failures.
//   - The Runner abstraction that executes an external tool under its own
//     timeout and reports a tagged Outcome instead of an error, so callers can
//     turn every tool result into inventory state.
//
// Use these helpers when wiring a new external tool so timeout, cancellation,
// and diagnostic capture behave the same across the pipeline.
package services
