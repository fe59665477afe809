package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"scribe/internal/alignment"
	"scribe/internal/audio"
	"scribe/internal/diarize"
	"scribe/internal/enrich"
	"scribe/internal/events"
	"scribe/internal/job"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Stage names used for timing events, log context, and event origins.
const (
	StageIngestion     = "ingestion"
	StageTranscription = "transcription"
	StageDiarization   = "diarization"
	StageAlignment     = "alignment"
)

// AudioNormalizer converts a source recording into a normalized artifact.
type AudioNormalizer interface {
	Normalize(ctx context.Context, sourcePath string) (audio.Artifact, error)
}

// Transcriber turns an artifact into utterances in the given language.
type Transcriber interface {
	Transcribe(ctx context.Context, artifact audio.Artifact, language string) ([]transcript.Utterance, error)
}

// Diarizer returns speaker turns for an artifact.
type Diarizer interface {
	Diarize(ctx context.Context, artifact audio.Artifact, opts diarize.Options) ([]transcript.Utterance, error)
}

// Orchestrator runs jobs. It holds no per-job state, so one instance may
// serve concurrent Execute calls when its collaborators allow it.
type Orchestrator struct {
	normalizer     AudioNormalizer
	transcriber    Transcriber
	diarizer       Diarizer
	aligner        alignment.Aligner
	enrichers      []enrich.Enricher
	publisher      events.Publisher
	logger         *slog.Logger
	targetLanguage string
	now            func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.NewComponentLogger(logger, "pipeline")
	}
}

// WithPublisher sets where job events are flushed.
func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithAligner replaces the default max-overlap aligner.
func WithAligner(a alignment.Aligner) Option {
	return func(o *Orchestrator) {
		if a != nil {
			o.aligner = a
		}
	}
}

// WithEnrichers sets the enrichment chain, applied in order.
func WithEnrichers(chain ...enrich.Enricher) Option {
	return func(o *Orchestrator) {
		o.enrichers = append([]enrich.Enricher(nil), chain...)
	}
}

// WithTargetLanguage sets the language stamped on the result transcript.
// When unset, the translation enricher's target is used if one is in the
// chain, otherwise the job language.
func WithTargetLanguage(lang string) Option {
	return func(o *Orchestrator) {
		o.targetLanguage = strings.TrimSpace(lang)
	}
}

// WithClock overrides the time source used for stage timings.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New constructs an orchestrator. The three collaborators are required.
func New(normalizer AudioNormalizer, transcriber Transcriber, diarizer Diarizer, opts ...Option) (*Orchestrator, error) {
	if normalizer == nil || transcriber == nil || diarizer == nil {
		return nil, errors.New("pipeline requires an audio normalizer, a transcriber, and a diarizer")
	}
	o := &Orchestrator{
		normalizer:  normalizer,
		transcriber: transcriber,
		diarizer:    diarizer,
		aligner:     alignment.MaxOverlap{},
		publisher:   events.Discard,
		logger:      logging.NewComponentLogger(nil, "pipeline"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Enrichers returns the configured chain names in order.
func (o *Orchestrator) Enrichers() []string {
	return enrich.Names(o.enrichers)
}

// Execute processes sourcePath. Precondition failures return an error
// marked services.ErrValidation and no job. Otherwise the job is returned
// with a nil error whether it completed or failed.
func (o *Orchestrator) Execute(ctx context.Context, sourcePath, language string, opts diarize.Options) (*job.Job, error) {
	if err := checkPreconditions(sourcePath, language); err != nil {
		return nil, err
	}
	language = strings.TrimSpace(language)

	j := job.New(sourcePath, language)
	ctx = services.WithJobID(ctx, j.ID.String())
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("source_file", sourcePath),
		logging.String("language", language),
		logging.Int("enrichers", len(o.enrichers)),
	)

	if err := o.run(ctx, j, language, opts); err != nil {
		o.fail(ctx, j, err)
		return j, nil
	}

	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Int("utterances", j.Result.Len()),
		logging.Duration("elapsed", j.Duration()),
	)
	return j, nil
}

func checkPreconditions(sourcePath, language string) error {
	if strings.TrimSpace(sourcePath) == "" {
		return services.Wrap(services.ErrValidation, "pipeline", "preconditions", "source path is required", nil)
	}
	info, err := os.Stat(sourcePath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "pipeline", "preconditions", fmt.Sprintf("source %q does not exist", sourcePath), err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "pipeline", "preconditions", fmt.Sprintf("source %q is a directory", sourcePath), nil)
	}
	if strings.TrimSpace(language) == "" {
		return services.Wrap(services.ErrValidation, "pipeline", "preconditions", "language is required", nil)
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, j *job.Job, language string, opts diarize.Options) error {
	var artifact audio.Artifact
	err := o.stage(ctx, j, StageIngestion, func(ctx context.Context) error {
		var err error
		artifact, err = o.normalizer.Normalize(ctx, j.SourcePath)
		if err != nil {
			return err
		}
		return j.MarkIngested(artifact.Path)
	})
	if err != nil {
		return err
	}

	var segments []transcript.Utterance
	err = o.stage(ctx, j, StageTranscription, func(ctx context.Context) error {
		if err := j.StartTranscribing(); err != nil {
			return err
		}
		var err error
		segments, err = o.transcriber.Transcribe(ctx, artifact, language)
		if err != nil {
			return err
		}
		logging.WithContext(ctx, o.logger).Debug("transcription received",
			logging.Int("segments", len(segments)),
			logging.Float64("mean_confidence", meanConfidence(segments)),
		)
		return j.RecordTranscribed(len(segments), language)
	})
	if err != nil {
		return err
	}

	var turns []transcript.Utterance
	err = o.stage(ctx, j, StageDiarization, func(ctx context.Context) error {
		if err := j.StartDiarizing(); err != nil {
			return err
		}
		var err error
		turns, err = o.diarizer.Diarize(ctx, artifact, opts)
		if err != nil {
			return err
		}
		speakers := speakerIDs(turns)
		logging.WithContext(ctx, o.logger).Debug("speaker turns received",
			logging.Int("turns", len(turns)),
			logging.Any("speakers", speakers),
		)
		return j.RecordSpeakers(len(speakers))
	})
	if err != nil {
		return err
	}

	var utterances []transcript.Utterance
	err = o.stage(ctx, j, StageAlignment, func(context.Context) error {
		utterances = o.aligner.Align(segments, turns)
		return nil
	})
	if err != nil {
		return err
	}

	for _, enricher := range o.enrichers {
		name := enricher.Name()
		err = o.stage(ctx, j, name, func(ctx context.Context) error {
			if err := j.StartEnrichment(name); err != nil {
				return err
			}
			o.flush(j)
			var err error
			utterances, err = enricher.Enrich(ctx, utterances, language)
			return err
		})
		if err != nil {
			return err
		}
	}

	j.SetOrigin("pipeline")
	result := transcript.NewAudioTranscript(utterances, o.resultLanguage(language))
	if err := j.Complete(result); err != nil {
		return err
	}
	o.flush(j)
	return nil
}

// stage runs fn with stage-scoped logging. On success the elapsed time is
// recorded and the stage's events are flushed; on failure the pending
// events are left for fail to flush after JobFailed is recorded.
func (o *Orchestrator) stage(ctx context.Context, j *job.Job, name string, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, o.logger)
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	j.SetOrigin(name)

	started := o.now()
	if err := runGuarded(stageCtx, fn); err != nil {
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Error(err),
		)
		return fmt.Errorf("%s: %w", name, err)
	}
	elapsed := o.now().Sub(started)
	j.RecordStepTiming(name, elapsed)
	o.flush(j)

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", elapsed),
		logging.String("job_status", string(j.Status)),
	)
	return nil
}

// runGuarded turns a collaborator panic into a stage error so the job fails
// instead of the process.
func runGuarded(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func (o *Orchestrator) fail(ctx context.Context, j *job.Job, cause error) {
	kind := services.Kind(cause)
	j.SetOrigin("pipeline")
	if err := j.Fail(cause.Error(), kind); err != nil {
		o.logger.Error("record job failure", logging.Error(err))
	}
	o.flush(j)
	logging.ErrorWithContext(logging.WithContext(ctx, o.logger), "job failed", "job_failure",
		logging.String(logging.FieldErrorKind, kind),
		logging.String(logging.FieldErrorHint, hintFor(kind)),
		logging.Error(cause),
	)
}

func (o *Orchestrator) flush(j *job.Job) {
	events.PublishAll(o.publisher, j.PullEvents())
}

func (o *Orchestrator) resultLanguage(language string) string {
	if o.targetLanguage != "" {
		return o.targetLanguage
	}
	for _, e := range o.enrichers {
		if t, ok := e.(interface{ TargetLanguage() string }); ok && t.TargetLanguage() != "" {
			return t.TargetLanguage()
		}
	}
	return language
}

// speakerIDs returns the distinct speakers of turns in first-seen order.
func speakerIDs(turns []transcript.Utterance) []string {
	seen := make(map[string]struct{}, len(turns))
	ids := make([]string, 0)
	for _, t := range turns {
		if _, ok := seen[t.SpeakerID()]; ok {
			continue
		}
		seen[t.SpeakerID()] = struct{}{}
		ids = append(ids, t.SpeakerID())
	}
	return ids
}

func meanConfidence(segments []transcript.Utterance) float64 {
	if len(segments) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range segments {
		sum += s.Confidence()
	}
	return sum / float64(len(segments))
}

func hintFor(kind string) string {
	switch kind {
	case "not_found":
		return "check the source path and that required binaries are on PATH (scribe doctor)"
	case "external_tool":
		return "inspect the tool output above; rerun with --log-level debug for the full command"
	case "configuration":
		return "run scribe config validate"
	case "timeout":
		return "raise the configured timeout or retry later"
	default:
		return "rerun with --log-level debug for details"
	}
}
