// Package services defines shared utilities consumed by the pipeline stages
// and the external collaborator adapters.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so every adapter reports
//     failures in the same shape, and Kind to classify them for job records.
//
// Use these helpers when wiring a new collaborator so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
