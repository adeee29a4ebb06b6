// Package services defines shared utilities consumed by the retiming pipeline
// and its command-line front end.
//
// Key responsibilities:
//   - Context helpers that stamp task IDs, stage names, strategies, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent run outcomes (failed vs review).
//
// Use these helpers when wiring new pipeline code so error classification and
// observability stay uniform.
package services
