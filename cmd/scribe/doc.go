// Package main hosts the scribe CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration, builds the transcription
// stack for the configured backends, runs jobs through the pipeline
// orchestrator, and renders transcripts, job history, and dependency checks.
// Keep this package lean: behavior belongs in the internal packages and is
// only surfaced here.
package main
