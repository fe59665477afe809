package enrich

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"scribe/internal/logging"
	"scribe/internal/transcript"
)

// DefaultMaxDuration bounds utterance length when none is configured.
const DefaultMaxDuration = 15 * time.Second

// Segmenter splits utterances longer than MaxDuration at sentence-ending
// punctuation. Bounds are always re-snapped to the span of the words.
type Segmenter struct {
	maxDuration time.Duration
	logger      *slog.Logger
}

// NewSegmenter returns a segmenter; maxDuration <= 0 selects DefaultMaxDuration.
func NewSegmenter(maxDuration time.Duration, logger *slog.Logger) *Segmenter {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	return &Segmenter{maxDuration: maxDuration, logger: logging.NewComponentLogger(logger, "segmentation")}
}

func (s *Segmenter) Name() string { return NameSegmentation }

func (s *Segmenter) Enrich(ctx context.Context, utterances []transcript.Utterance, _ string) ([]transcript.Utterance, error) {
	logger := logging.WithContext(ctx, s.logger)
	out := make([]transcript.Utterance, 0, len(utterances))
	for _, u := range utterances {
		parts, err := s.split(logger, u)
		if err != nil {
			return nil, err
		}
		out = append(out, parts...)
	}
	return out, nil
}

func (s *Segmenter) split(logger *slog.Logger, u transcript.Utterance) ([]transcript.Utterance, error) {
	words := u.Words()
	if len(words) == 0 {
		return []transcript.Utterance{u}, nil
	}

	params := u.Params()
	params.Timestamp = wordSpan(words)
	tight, err := transcript.NewUtterance(params)
	if err != nil {
		return nil, err
	}
	if tight.Timestamp().Duration() <= s.maxDuration {
		return []transcript.Utterance{tight}, nil
	}

	cut := -1
	for i, w := range words[:len(words)-1] {
		if endsSentence(w.Text()) {
			cut = i
			break
		}
	}
	if cut < 0 {
		logging.WarnWithContext(logger, "utterance too long, no terminal punctuation to split at", "segment_unsplittable",
			logging.Duration("duration", tight.Timestamp().Duration()),
			logging.Duration("max_duration", s.maxDuration),
			logging.String("text_preview", preview(tight.Text(), 50)),
			logging.String(logging.FieldImpact, "utterance kept longer than the configured maximum"),
			logging.String(logging.FieldErrorHint, "raise segmentation.max_duration_seconds or use a transcriber that emits punctuation"),
		)
		return []transcript.Utterance{tight}, nil
	}

	left, err := fromWords(words[:cut+1], u.SpeakerID())
	if err != nil {
		return nil, err
	}
	right, err := fromWords(words[cut+1:], u.SpeakerID())
	if err != nil {
		return nil, err
	}
	leftParts, err := s.split(logger, left)
	if err != nil {
		return nil, err
	}
	rightParts, err := s.split(logger, right)
	if err != nil {
		return nil, err
	}
	return append(leftParts, rightParts...), nil
}

func endsSentence(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	switch text[len(text)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// fromWords builds a tight utterance whose text is the concatenated word
// texts and whose confidence is their mean.
func fromWords(words []transcript.Word, speaker string) (transcript.Utterance, error) {
	var b strings.Builder
	sum := 0.0
	for _, w := range words {
		b.WriteString(w.Text())
		sum += w.Confidence()
	}
	confidence := 1.0
	if len(words) > 0 {
		confidence = sum / float64(len(words))
	}
	return transcript.NewUtterance(transcript.UtteranceParams{
		Timestamp:  wordSpan(words),
		Text:       strings.TrimSpace(b.String()),
		SpeakerID:  speaker,
		Confidence: clamp01(confidence),
		Words:      words,
	})
}

// wordSpan covers every word in words, which need not be in time order.
// words must be non-empty.
func wordSpan(words []transcript.Word) transcript.TimestampRange {
	start, end := words[0].Timestamp().Start(), words[0].Timestamp().End()
	for _, w := range words[1:] {
		start = min(start, w.Timestamp().Start())
		end = max(end, w.Timestamp().End())
	}
	return transcript.MustRange(start, end)
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
