package llm

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"scribe/internal/logging"
	"scribe/internal/retry"
	"scribe/internal/services"
)

// annotationOK is the model's answer for a segment that needs no note.
const annotationOK = "OK"

// Annotator requests learner notes through a Completer. Exhausted retries
// yield no notes for the batch.
type Annotator struct {
	completer Completer
	policy    retry.Policy
	logger    *slog.Logger
}

// NewAnnotator wraps completer.
func NewAnnotator(completer Completer, policy retry.Policy, logger *slog.Logger) *Annotator {
	return &Annotator{
		completer: completer,
		policy:    policy,
		logger:    logging.NewComponentLogger(logger, "llm-annotator"),
	}
}

type annotationResponse struct {
	Annotations []struct {
		ID   itemID `json:"id"`
		Note string `json:"note"`
	} `json:"annotations"`
}

// Annotate returns one optional note per text. "OK", blank, and omitted
// items map to nil.
func (a *Annotator) Annotate(ctx context.Context, texts []string, lang string, contextTexts []string) ([]*string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	user, err := itemsPrompt("items_to_annotate", texts, contextTexts)
	if err != nil {
		return nil, err
	}
	system := annotationSystemPrompt(lang)
	logger := logging.WithContext(ctx, a.logger)

	policy := a.policy
	policy.OnRetry = retryLogger(logger, "annotation")
	out, err := retry.Do(ctx, policy, func(ctx context.Context) ([]*string, error) {
		content, err := a.completer.CompleteJSON(ctx, system, user)
		if err != nil {
			return nil, err
		}
		var parsed annotationResponse
		if err := DecodeJSON(content, &parsed); err != nil {
			return nil, services.Wrap(services.ErrTransient, "annotation", "decode", "", err)
		}
		byID := make(map[string]string, len(parsed.Annotations))
		for _, item := range parsed.Annotations {
			byID[string(item.ID)] = strings.TrimSpace(item.Note)
		}
		notes := make([]*string, len(texts))
		for i := range texts {
			note, ok := byID[strconv.Itoa(i)]
			if !ok || note == "" || strings.EqualFold(note, annotationOK) {
				continue
			}
			notes[i] = &note
		}
		return notes, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logging.ErrorWithContext(logger, "annotation gave up; leaving batch without notes", "annotation_exhausted",
			logging.Int("items", len(texts)),
			logging.Error(err),
		)
		return make([]*string, len(texts)), nil
	}
	return out, nil
}
