package transcript

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// UnknownSpeaker labels utterances no diarized turn could be attributed to.
const UnknownSpeaker = "Unknown"

var (
	// ErrInvalidRange reports a range with a negative bound or start after end.
	ErrInvalidRange = errors.New("invalid timestamp range")
	// ErrInvalidConfidence reports a confidence outside [0,1].
	ErrInvalidConfidence = errors.New("confidence out of range")
	// ErrWordOutOfBounds reports a word that is not contained in its utterance.
	ErrWordOutOfBounds = errors.New("word outside utterance bounds")
)

// TimestampRange is a closed-open interval of audio offsets.
type TimestampRange struct {
	start time.Duration
	end   time.Duration
}

// NewTimestampRange validates and builds a range.
func NewTimestampRange(start, end time.Duration) (TimestampRange, error) {
	if start < 0 || end < 0 || start > end {
		return TimestampRange{}, fmt.Errorf("%w: start=%s end=%s", ErrInvalidRange, start, end)
	}
	return TimestampRange{start: start, end: end}, nil
}

// MustRange is NewTimestampRange for literals known to be valid; it panics otherwise.
func MustRange(start, end time.Duration) TimestampRange {
	r, err := NewTimestampRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

func (r TimestampRange) Start() time.Duration    { return r.start }
func (r TimestampRange) End() time.Duration      { return r.end }
func (r TimestampRange) Duration() time.Duration { return r.end - r.start }

// Contains reports whether other lies entirely inside r.
func (r TimestampRange) Contains(other TimestampRange) bool {
	return other.start >= r.start && other.end <= r.end
}

// Overlap returns the length of the intersection, or zero when disjoint.
func (r TimestampRange) Overlap(other TimestampRange) time.Duration {
	overlap := min(r.end, other.end) - max(r.start, other.start)
	if overlap < 0 {
		return 0
	}
	return overlap
}

func (r TimestampRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.start, r.end)
}

// Word is a single recognized token with timing and confidence.
type Word struct {
	text       string
	timestamp  TimestampRange
	confidence float64
}

// NewWord validates and builds a word. Text is stored verbatim so sub-word
// tokens keep the leading space that marks a word boundary.
func NewWord(text string, ts TimestampRange, confidence float64) (Word, error) {
	if err := checkConfidence(confidence); err != nil {
		return Word{}, fmt.Errorf("word %q: %w", text, err)
	}
	return Word{text: text, timestamp: ts, confidence: confidence}, nil
}

func (w Word) Text() string              { return w.text }
func (w Word) Timestamp() TimestampRange { return w.timestamp }
func (w Word) Confidence() float64       { return w.confidence }

// UtteranceParams carries the fields needed to build an Utterance.
type UtteranceParams struct {
	Timestamp      TimestampRange
	Text           string
	SpeakerID      string
	Confidence     float64
	Words          []Word
	TranslatedText *string
	LearnerNotes   *string
}

// Utterance is a contiguous speech segment attributed to one speaker.
type Utterance struct {
	timestamp      TimestampRange
	text           string
	speakerID      string
	confidence     float64
	words          []Word
	translatedText *string
	learnerNotes   *string
}

// NewUtterance validates params and builds an utterance. Every word must lie
// within the utterance range.
func NewUtterance(p UtteranceParams) (Utterance, error) {
	if err := checkConfidence(p.Confidence); err != nil {
		return Utterance{}, fmt.Errorf("utterance: %w", err)
	}
	for i, w := range p.Words {
		if !p.Timestamp.Contains(w.timestamp) {
			return Utterance{}, fmt.Errorf("%w: word %d %q %s not in %s", ErrWordOutOfBounds, i, w.text, w.timestamp, p.Timestamp)
		}
	}
	return Utterance{
		timestamp:      p.Timestamp,
		text:           p.Text,
		speakerID:      p.SpeakerID,
		confidence:     p.Confidence,
		words:          slices.Clone(p.Words),
		translatedText: cloneString(p.TranslatedText),
		learnerNotes:   cloneString(p.LearnerNotes),
	}, nil
}

func (u Utterance) Timestamp() TimestampRange { return u.timestamp }
func (u Utterance) Text() string              { return u.text }
func (u Utterance) SpeakerID() string         { return u.speakerID }
func (u Utterance) Confidence() float64       { return u.confidence }

// Words returns a copy of the word list.
func (u Utterance) Words() []Word { return slices.Clone(u.words) }

// WordCount avoids copying when only the length is needed.
func (u Utterance) WordCount() int { return len(u.words) }

// TranslatedText returns the translation and whether one was set. An empty
// translation that was set still reports true.
func (u Utterance) TranslatedText() (string, bool) {
	if u.translatedText == nil {
		return "", false
	}
	return *u.translatedText, true
}

// LearnerNotes returns the annotation and whether one was set.
func (u Utterance) LearnerNotes() (string, bool) {
	if u.learnerNotes == nil {
		return "", false
	}
	return *u.learnerNotes, true
}

// Params returns the fields of u so a modified copy can be rebuilt through NewUtterance.
func (u Utterance) Params() UtteranceParams {
	return UtteranceParams{
		Timestamp:      u.timestamp,
		Text:           u.text,
		SpeakerID:      u.speakerID,
		Confidence:     u.confidence,
		Words:          slices.Clone(u.words),
		TranslatedText: cloneString(u.translatedText),
		LearnerNotes:   cloneString(u.learnerNotes),
	}
}

// WithSpeaker returns a copy attributed to speakerID.
func (u Utterance) WithSpeaker(speakerID string) Utterance {
	u.words = slices.Clone(u.words)
	u.speakerID = speakerID
	return u
}

// WithTranslation returns a copy carrying text as its translation.
func (u Utterance) WithTranslation(text string) Utterance {
	u.words = slices.Clone(u.words)
	u.translatedText = &text
	return u
}

// WithLearnerNotes returns a copy carrying notes; nil clears them.
func (u Utterance) WithLearnerNotes(notes *string) Utterance {
	u.words = slices.Clone(u.words)
	u.learnerNotes = cloneString(notes)
	return u
}

// AudioTranscript is the assembled pipeline result.
type AudioTranscript struct {
	utterances     []Utterance
	targetLanguage string
}

// NewAudioTranscript builds a transcript; targetLanguage may be empty.
func NewAudioTranscript(utterances []Utterance, targetLanguage string) AudioTranscript {
	return AudioTranscript{utterances: slices.Clone(utterances), targetLanguage: strings.TrimSpace(targetLanguage)}
}

// Utterances returns a copy of the utterance list.
func (t AudioTranscript) Utterances() []Utterance { return slices.Clone(t.utterances) }

func (t AudioTranscript) Len() int               { return len(t.utterances) }
func (t AudioTranscript) TargetLanguage() string { return t.targetLanguage }

// Speakers returns the distinct speaker ids in sorted order.
func (t AudioTranscript) Speakers() []string {
	seen := make(map[string]struct{})
	var speakers []string
	for _, u := range t.utterances {
		if _, ok := seen[u.speakerID]; ok {
			continue
		}
		seen[u.speakerID] = struct{}{}
		speakers = append(speakers, u.speakerID)
	}
	slices.Sort(speakers)
	return speakers
}

// TotalDuration is the end of the last utterance, or zero when empty.
func (t AudioTranscript) TotalDuration() time.Duration {
	if len(t.utterances) == 0 {
		return 0
	}
	return t.utterances[len(t.utterances)-1].timestamp.end
}

func checkConfidence(c float64) error {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidConfidence, c)
	}
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
