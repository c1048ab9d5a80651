// Package services defines shared utilities consumed by the pipeline steps
// and the CLI boundary.
//
// Key responsibilities:
//   - Context helpers that stamp step names, run identifiers, and the
//     device/recording pair for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent process exit classifications (fatal vs recovered).
//
// Use these helpers when wiring new step logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
