// Package job models a single processing job: its forward-only status
// machine, its terminal result or failure, and the queue of domain events
// it accumulates until the orchestrator drains them.
package job

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"scribe/internal/events"
	"scribe/internal/transcript"
)

// Status represents a job lifecycle state.
type Status string

const (
	StatusCreated      Status = "created"
	StatusIngested     Status = "ingested"
	StatusTranscribing Status = "transcribing"
	StatusDiarizing    Status = "diarizing"
	StatusEnriching    Status = "enriching"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// ErrInvalidTransition reports a status change the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid job transition")

var statusOrder = map[Status]int{
	StatusCreated:      0,
	StatusIngested:     1,
	StatusTranscribing: 2,
	StatusDiarizing:    3,
	StatusEnriching:    4,
	StatusCompleted:    5,
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks one execution of the pipeline. It is owned by a single Execute
// call and is not safe for concurrent use.
type Job struct {
	ID             uuid.UUID
	SourcePath     string
	TargetLanguage string
	Status         Status
	Enricher       string
	Result         *transcript.AudioTranscript
	ErrorMessage   string
	ErrorKind      string
	CreatedAt      time.Time
	FinishedAt     time.Time

	origin  string
	pending []events.Event
}

// New creates a job in the created state.
func New(sourcePath, targetLanguage string) *Job {
	return &Job{
		ID:             uuid.New(),
		SourcePath:     sourcePath,
		TargetLanguage: targetLanguage,
		Status:         StatusCreated,
		CreatedAt:      time.Now().UTC(),
		origin:         "job",
	}
}

// SetOrigin sets the tag stamped on subsequently recorded events.
func (j *Job) SetOrigin(origin string) {
	j.origin = origin
}

func (j *Job) meta() events.Meta {
	return events.NewMeta(j.ID.String(), j.origin)
}

func (j *Job) record(e events.Event) {
	j.pending = append(j.pending, e)
}

// advance moves forward to next. Re-entering enriching is allowed so each
// enricher gets its own marker.
func (j *Job) advance(next Status) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s is %s", ErrInvalidTransition, j.ID, j.Status)
	}
	cur, rank := statusOrder[j.Status], statusOrder[next]
	if rank < cur || (rank == cur && next != StatusEnriching) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
	}
	j.Status = next
	return nil
}

func (j *Job) require(expected Status, op string) error {
	if j.Status != expected {
		return fmt.Errorf("%w: %s requires %s, job is %s", ErrInvalidTransition, op, expected, j.Status)
	}
	return nil
}

// MarkIngested records that the source was normalized into artifactPath.
func (j *Job) MarkIngested(artifactPath string) error {
	if err := j.require(StatusCreated, "MarkIngested"); err != nil {
		return err
	}
	if err := j.advance(StatusIngested); err != nil {
		return err
	}
	j.record(events.AudioIngested{Meta: j.meta(), SourcePath: j.SourcePath, ArtifactPath: artifactPath})
	return nil
}

// StartTranscribing enters the transcribing state.
func (j *Job) StartTranscribing() error {
	if err := j.require(StatusIngested, "StartTranscribing"); err != nil {
		return err
	}
	return j.advance(StatusTranscribing)
}

// RecordTranscribed records the transcription outcome.
func (j *Job) RecordTranscribed(utteranceCount int, language string) error {
	if err := j.require(StatusTranscribing, "RecordTranscribed"); err != nil {
		return err
	}
	j.record(events.SpeechTranscribed{Meta: j.meta(), UtteranceCount: utteranceCount, Language: language})
	return nil
}

// StartDiarizing enters the diarizing state.
func (j *Job) StartDiarizing() error {
	if err := j.require(StatusTranscribing, "StartDiarizing"); err != nil {
		return err
	}
	return j.advance(StatusDiarizing)
}

// RecordSpeakers records how many distinct speakers diarization found.
func (j *Job) RecordSpeakers(speakerCount int) error {
	if err := j.require(StatusDiarizing, "RecordSpeakers"); err != nil {
		return err
	}
	j.record(events.SpeakersIdentified{Meta: j.meta(), SpeakerCount: speakerCount})
	return nil
}

// StartEnrichment enters (or re-enters) the enriching state for name.
func (j *Job) StartEnrichment(name string) error {
	if j.Status != StatusDiarizing && j.Status != StatusEnriching {
		return fmt.Errorf("%w: StartEnrichment from %s", ErrInvalidTransition, j.Status)
	}
	if err := j.advance(StatusEnriching); err != nil {
		return err
	}
	j.Enricher = name
	j.record(events.EnrichmentStarted{Meta: j.meta(), EnricherName: name})
	return nil
}

// RecordStepTiming records the wall-clock duration of a stage.
func (j *Job) RecordStepTiming(step string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	j.record(events.PipelineStepTimed{Meta: j.meta(), StepName: step, Duration: d})
}

// Complete stores result and finishes the job.
func (j *Job) Complete(result transcript.AudioTranscript) error {
	if j.Status != StatusDiarizing && j.Status != StatusEnriching {
		return fmt.Errorf("%w: Complete from %s", ErrInvalidTransition, j.Status)
	}
	if err := j.advance(StatusCompleted); err != nil {
		return err
	}
	j.Result = &result
	j.ErrorMessage = ""
	j.ErrorKind = ""
	j.FinishedAt = time.Now().UTC()
	j.record(events.JobCompleted{Meta: j.meta(), UtteranceCount: result.Len()})
	return nil
}

// Fail terminates the job with message. Any partial result is discarded.
func (j *Job) Fail(message, kind string) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s is already %s", ErrInvalidTransition, j.ID, j.Status)
	}
	if message == "" {
		message = "unknown error"
	}
	j.Status = StatusFailed
	j.Result = nil
	j.ErrorMessage = message
	j.ErrorKind = kind
	j.FinishedAt = time.Now().UTC()
	j.record(events.JobFailed{Meta: j.meta(), ErrorMessage: message, ErrorKind: kind})
	return nil
}

// PullEvents returns the pending events in emission order and clears the queue.
func (j *Job) PullEvents() []events.Event {
	out := j.pending
	j.pending = nil
	return out
}

// Duration returns how long the job ran, or zero while it is still running.
func (j *Job) Duration() time.Duration {
	if j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.CreatedAt)
}
