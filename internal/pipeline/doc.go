// Package pipeline sequences one transcription job through normalization,
// transcription, diarization, alignment, and the configured enrichment
// chain.
//
// Every stage runs synchronously on the caller's goroutine. Job milestones
// are buffered on the job and flushed to the configured events.Publisher
// after each stage, followed by a timing event for that stage. A stage error
// never escapes Execute: it ends the job in the failed state and the job is
// returned so callers branch on its status.
package pipeline
