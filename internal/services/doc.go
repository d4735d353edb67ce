// Package services defines shared utilities consumed by the caption pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp video IDs, caption languages, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent CLI exit codes.
//
// Use these helpers when wiring new pipeline steps so operational behaviour
// (error handling, observability) stays uniform across commands.
package services
