// Package history persists finished jobs and the domain events they raised
// in an embedded SQLite database.
//
// The Recorder subscribes to the event bus and appends every event as it is
// published; the CLI calls SaveJob once the job reaches a terminal status.
// Events are stored as JSON payloads so new event fields never require a
// schema change.
package history
