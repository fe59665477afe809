package llm

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"scribe/internal/logging"
	"scribe/internal/retry"
	"scribe/internal/services"
)

// Translator translates batches through a Completer. Each batch is retried
// per the policy; when attempts run out it returns an empty translation for
// every item instead of an error.
type Translator struct {
	completer Completer
	policy    retry.Policy
	logger    *slog.Logger
}

// NewTranslator wraps completer.
func NewTranslator(completer Completer, policy retry.Policy, logger *slog.Logger) *Translator {
	return &Translator{
		completer: completer,
		policy:    policy,
		logger:    logging.NewComponentLogger(logger, "llm-translator"),
	}
}

type translationResponse struct {
	Translations []struct {
		ID   itemID `json:"id"`
		Text string `json:"text"`
	} `json:"translations"`
}

// Translate returns one translation per text, in order. Items the model
// omits come back empty. Only context cancellation is returned as an error.
func (t *Translator) Translate(ctx context.Context, texts []string, sourceLang, targetLang string, contextTexts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	user, err := itemsPrompt("items_to_translate", texts, contextTexts)
	if err != nil {
		return nil, err
	}
	system := translationSystemPrompt(sourceLang, targetLang)
	logger := logging.WithContext(ctx, t.logger)

	policy := t.policy
	policy.OnRetry = retryLogger(logger, "translation")
	out, err := retry.Do(ctx, policy, func(ctx context.Context) ([]string, error) {
		content, err := t.completer.CompleteJSON(ctx, system, user)
		if err != nil {
			return nil, err
		}
		var parsed translationResponse
		if err := DecodeJSON(content, &parsed); err != nil {
			return nil, services.Wrap(services.ErrTransient, "translation", "decode", "", err)
		}
		byID := make(map[string]string, len(parsed.Translations))
		for _, item := range parsed.Translations {
			byID[string(item.ID)] = strings.TrimSpace(item.Text)
		}
		result := make([]string, len(texts))
		for i := range texts {
			result[i] = byID[strconv.Itoa(i)]
		}
		return result, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logging.ErrorWithContext(logger, "translation gave up; using empty translations", "translation_exhausted",
			logging.Int("items", len(texts)),
			logging.String(logging.FieldImpact, "batch is left untranslated"),
			logging.Error(err),
		)
		return make([]string, len(texts)), nil
	}
	return out, nil
}

func retryLogger(logger *slog.Logger, op string) func(int, time.Duration, error) {
	return func(attempt int, delay time.Duration, err error) {
		logging.WarnWithContext(logger, "remote call failed; backing off", op+"_retry",
			logging.Int("attempt", attempt+1),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
	}
}
