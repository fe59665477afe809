package enrich

import (
	"context"
	"log/slog"

	"scribe/internal/logging"
	"scribe/internal/transcript"
)

// Translator translates texts in order. context holds preceding source texts
// for disambiguation only; the result must have one entry per text.
type Translator interface {
	Translate(ctx context.Context, texts []string, sourceLang, targetLang string, contextTexts []string) ([]string, error)
}

// Default batching for translation.
const (
	DefaultTranslationBatch   = 10
	DefaultTranslationContext = 0
)

// Translation fills TranslatedText batch by batch. A failing or mismatched
// batch leaves its utterances with an empty translation and processing
// continues with the next batch.
type Translation struct {
	translator  Translator
	target      string
	batchSize   int
	contextSize int
	logger      *slog.Logger
}

// NewTranslation constructs the enricher. batchSize <= 0 selects the default;
// a negative contextSize is treated as zero.
func NewTranslation(translator Translator, targetLang string, batchSize, contextSize int, logger *slog.Logger) *Translation {
	if batchSize <= 0 {
		batchSize = DefaultTranslationBatch
	}
	return &Translation{
		translator:  translator,
		target:      targetLang,
		batchSize:   batchSize,
		contextSize: max(0, contextSize),
		logger:      logging.NewComponentLogger(logger, "translation"),
	}
}

func (t *Translation) Name() string { return NameTranslation }

// TargetLanguage reports the language translations are produced in.
func (t *Translation) TargetLanguage() string { return t.target }

func (t *Translation) Enrich(ctx context.Context, utterances []transcript.Utterance, language string) ([]transcript.Utterance, error) {
	if len(utterances) == 0 {
		return nil, nil
	}
	logger := logging.WithContext(ctx, t.logger)
	logger.Info("translating utterances",
		logging.Int("utterances", len(utterances)),
		logging.String("source_language", language),
		logging.String("target_language", t.target),
		logging.Int("batch_size", t.batchSize),
		logging.Int("context_size", t.contextSize),
	)

	all := texts(utterances)
	out := make([]transcript.Utterance, 0, len(utterances))
	for start := 0; start < len(utterances); start += t.batchSize {
		end := min(start+t.batchSize, len(utterances))
		batch := utterances[start:end]
		window := all[max(0, start-t.contextSize):start]

		translated, err := t.translator.Translate(ctx, all[start:end], language, t.target, window)
		if abortErr := aborted(ctx, err); abortErr != nil {
			return nil, abortErr
		}
		switch {
		case err != nil:
			logging.ErrorWithContext(logger, "translation batch failed", "translation_batch_failed",
				logging.Int("batch_start", start),
				logging.Int("batch_len", len(batch)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check LLM credentials and rate limits"),
			)
			translated = make([]string, len(batch))
		case len(translated) != len(batch):
			logging.WarnWithContext(logger, "translation count mismatch", "translation_batch_mismatch",
				logging.Int("batch_start", start),
				logging.Int("expected", len(batch)),
				logging.Int("received", len(translated)),
				logging.String(logging.FieldImpact, "batch left untranslated"),
			)
			translated = make([]string, len(batch))
		}
		for i, u := range batch {
			out = append(out, u.WithTranslation(translated[i]))
		}
	}
	return out, nil
}
