package events

import "time"

// Kind identifies an event variant.
type Kind string

const (
	KindAudioIngested      Kind = "audio_ingested"
	KindSpeechTranscribed  Kind = "speech_transcribed"
	KindSpeakersIdentified Kind = "speakers_identified"
	KindEnrichmentStarted  Kind = "enrichment_started"
	KindPipelineStepTimed  Kind = "pipeline_step_timed"
	KindJobCompleted       Kind = "job_completed"
	KindJobFailed          Kind = "job_failed"
)

// Event is a milestone reached while processing a job.
type Event interface {
	Kind() Kind
	JobID() string
	OccurredAt() time.Time
	// Origin names the stage or component that raised the event.
	Origin() string
}

// Meta carries the fields shared by every event.
type Meta struct {
	Job    string
	At     time.Time
	Source string
}

// NewMeta stamps the current time.
func NewMeta(jobID, origin string) Meta {
	return Meta{Job: jobID, At: time.Now().UTC(), Source: origin}
}

func (m Meta) JobID() string         { return m.Job }
func (m Meta) OccurredAt() time.Time { return m.At }
func (m Meta) Origin() string        { return m.Source }

type AudioIngested struct {
	Meta
	SourcePath   string
	ArtifactPath string
}

func (AudioIngested) Kind() Kind { return KindAudioIngested }

type SpeechTranscribed struct {
	Meta
	UtteranceCount int
	Language       string
}

func (SpeechTranscribed) Kind() Kind { return KindSpeechTranscribed }

type SpeakersIdentified struct {
	Meta
	SpeakerCount int
}

func (SpeakersIdentified) Kind() Kind { return KindSpeakersIdentified }

type EnrichmentStarted struct {
	Meta
	EnricherName string
}

func (EnrichmentStarted) Kind() Kind { return KindEnrichmentStarted }

type PipelineStepTimed struct {
	Meta
	StepName string
	Duration time.Duration
}

func (PipelineStepTimed) Kind() Kind { return KindPipelineStepTimed }

type JobCompleted struct {
	Meta
	UtteranceCount int
}

func (JobCompleted) Kind() Kind { return KindJobCompleted }

type JobFailed struct {
	Meta
	ErrorMessage string
	// ErrorKind is the services classification, e.g. "external_tool".
	ErrorKind string
}

func (JobFailed) Kind() Kind { return KindJobFailed }

// Kinds lists every variant in pipeline order.
func Kinds() []Kind {
	return []Kind{
		KindAudioIngested,
		KindSpeechTranscribed,
		KindSpeakersIdentified,
		KindEnrichmentStarted,
		KindPipelineStepTimed,
		KindJobCompleted,
		KindJobFailed,
	}
}
