package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"scribe/internal/enrich"
	"scribe/internal/logging"
)

const keyPrefix = "scribe:translation:"

// Translator serves batches from a Store before delegating. Only complete
// results (one non-empty translation per text) are stored, so fallbacks
// from a failing provider are never cached.
type Translator struct {
	next   enrich.Translator
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewTranslator wraps next. ttl <= 0 stores without expiry.
func NewTranslator(next enrich.Translator, store Store, ttl time.Duration, logger *slog.Logger) *Translator {
	return &Translator{
		next:   next,
		store:  store,
		ttl:    max(ttl, 0),
		logger: logging.NewComponentLogger(logger, "translation-cache"),
	}
}

// Key derives the cache key for one request.
func Key(texts []string, sourceLang, targetLang string, contextTexts []string) string {
	payload, _ := json.Marshal(struct {
		Source  string   `json:"s"`
		Target  string   `json:"t"`
		Context []string `json:"c"`
		Texts   []string `json:"x"`
	}{sourceLang, targetLang, contextTexts, texts})
	sum := sha256.Sum256(payload)
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (t *Translator) Translate(ctx context.Context, texts []string, sourceLang, targetLang string, contextTexts []string) ([]string, error) {
	if len(texts) == 0 {
		return t.next.Translate(ctx, texts, sourceLang, targetLang, contextTexts)
	}
	logger := logging.WithContext(ctx, t.logger)
	key := Key(texts, sourceLang, targetLang, contextTexts)

	if raw, ok, err := t.store.Get(ctx, key); err != nil {
		logging.WarnWithContext(logger, "translation cache lookup failed", "cache_get_failed",
			logging.String(logging.FieldImpact, "batch is translated without the cache"),
			logging.Error(err))
	} else if ok {
		var cached []string
		if err := json.Unmarshal(raw, &cached); err == nil && len(cached) == len(texts) {
			logger.Debug("translation cache hit", logging.Int("items", len(texts)))
			return cached, nil
		}
	}

	out, err := t.next.Translate(ctx, texts, sourceLang, targetLang, contextTexts)
	if err != nil || !complete(out, len(texts)) {
		return out, err
	}
	encoded, err := json.Marshal(out)
	if err == nil {
		err = t.store.Set(ctx, key, encoded, t.ttl)
	}
	if err != nil {
		logging.WarnWithContext(logger, "translation cache store failed", "cache_set_failed", logging.Error(err))
	}
	return out, nil
}

func complete(out []string, n int) bool {
	if len(out) != n {
		return false
	}
	for _, s := range out {
		if s == "" {
			return false
		}
	}
	return true
}
