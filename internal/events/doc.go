// Package events defines the domain events a job emits as it moves through
// the pipeline and the synchronous in-process bus that routes them to
// observers. Events are for observability only; pipeline control flow never
// depends on a handler.
package events
