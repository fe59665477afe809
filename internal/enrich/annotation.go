package enrich

import (
	"context"
	"log/slog"

	"scribe/internal/logging"
	"scribe/internal/transcript"
)

// TargetMarker separates preceding from following context in annotation requests.
const TargetMarker = "--- TARGET SEGMENT(S) BELOW ---"

// Annotator returns one optional learner note per text; nil means nothing
// worth noting.
type Annotator interface {
	Annotate(ctx context.Context, texts []string, language string, contextTexts []string) ([]*string, error)
}

// Default batching for annotation.
const (
	DefaultAnnotationBatch   = 1
	DefaultAnnotationContext = 10
)

// Annotation attaches learner notes. Context is the surrounding source text:
// up to contextSize utterances before the batch, TargetMarker, then up to
// contextSize after it. Failed batches get no notes.
type Annotation struct {
	annotator   Annotator
	batchSize   int
	contextSize int
	logger      *slog.Logger
}

// NewAnnotation constructs the enricher with the given batching.
func NewAnnotation(annotator Annotator, batchSize, contextSize int, logger *slog.Logger) *Annotation {
	if batchSize <= 0 {
		batchSize = DefaultAnnotationBatch
	}
	return &Annotation{
		annotator:   annotator,
		batchSize:   batchSize,
		contextSize: max(0, contextSize),
		logger:      logging.NewComponentLogger(logger, "annotation"),
	}
}

func (a *Annotation) Name() string { return NameAnnotation }

func (a *Annotation) Enrich(ctx context.Context, utterances []transcript.Utterance, language string) ([]transcript.Utterance, error) {
	if len(utterances) == 0 {
		return nil, nil
	}
	logger := logging.WithContext(ctx, a.logger)
	logger.Info("annotating utterances for learners",
		logging.Int("utterances", len(utterances)),
		logging.Int("context_size", a.contextSize),
	)

	all := texts(utterances)
	out := make([]transcript.Utterance, 0, len(utterances))
	for start := 0; start < len(utterances); start += a.batchSize {
		end := min(start+a.batchSize, len(utterances))
		batch := utterances[start:end]

		window := make([]string, 0, 2*a.contextSize+1)
		window = append(window, all[max(0, start-a.contextSize):start]...)
		window = append(window, TargetMarker)
		window = append(window, all[end:min(len(all), end+a.contextSize)]...)

		notes, err := a.annotator.Annotate(ctx, all[start:end], language, window)
		if abortErr := aborted(ctx, err); abortErr != nil {
			return nil, abortErr
		}
		switch {
		case err != nil:
			logging.ErrorWithContext(logger, "annotation batch failed", "annotation_batch_failed",
				logging.Int("batch_start", start),
				logging.Error(err),
			)
			notes = make([]*string, len(batch))
		case len(notes) != len(batch):
			logging.WarnWithContext(logger, "annotation count mismatch", "annotation_batch_mismatch",
				logging.Int("batch_start", start),
				logging.Int("expected", len(batch)),
				logging.Int("received", len(notes)),
				logging.String(logging.FieldImpact, "batch left without learner notes"),
			)
			notes = make([]*string, len(batch))
		}
		for i, u := range batch {
			out = append(out, u.WithLearnerNotes(notes[i]))
		}
	}
	return out, nil
}
