package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"
)

type wireTranscript struct {
	TargetLanguage *string         `json:"target_language"`
	TotalDuration  float64         `json:"total_duration"`
	Utterances     []wireUtterance `json:"utterances"`
}

type wireUtterance struct {
	Start          float64    `json:"start"`
	End            float64    `json:"end"`
	Speaker        string     `json:"speaker"`
	Text           string     `json:"text"`
	TranslatedText *string    `json:"translated_text"`
	LearnerNotes   *string    `json:"learner_notes"`
	Confidence     float64    `json:"confidence"`
	Words          []wireWord `json:"words"`
}

type wireWord struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Encode writes t as indented JSON. Offsets are seconds with millisecond precision.
func Encode(w io.Writer, t AudioTranscript) error {
	doc := wireTranscript{
		TotalDuration: seconds(t.TotalDuration()),
		Utterances:    make([]wireUtterance, 0, len(t.utterances)),
	}
	if t.targetLanguage != "" {
		lang := t.targetLanguage
		doc.TargetLanguage = &lang
	}
	for _, u := range t.utterances {
		wu := wireUtterance{
			Start:          seconds(u.timestamp.start),
			End:            seconds(u.timestamp.end),
			Speaker:        u.speakerID,
			Text:           u.text,
			TranslatedText: cloneString(u.translatedText),
			LearnerNotes:   cloneString(u.learnerNotes),
			Confidence:     round(u.confidence, 4),
			Words:          make([]wireWord, 0, len(u.words)),
		}
		for _, word := range u.words {
			wu.Words = append(wu.Words, wireWord{
				Start:      seconds(word.timestamp.start),
				End:        seconds(word.timestamp.end),
				Text:       word.text,
				Confidence: round(word.confidence, 4),
			})
		}
		doc.Utterances = append(doc.Utterances, wu)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	return nil
}

// Decode reads a transcript written by Encode, re-validating every value.
func Decode(r io.Reader) (AudioTranscript, error) {
	var doc wireTranscript
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return AudioTranscript{}, fmt.Errorf("decode transcript: %w", err)
	}
	utterances := make([]Utterance, 0, len(doc.Utterances))
	for i, wu := range doc.Utterances {
		ts, err := NewTimestampRange(FromSeconds(wu.Start), FromSeconds(wu.End))
		if err != nil {
			return AudioTranscript{}, fmt.Errorf("utterance %d: %w", i, err)
		}
		words := make([]Word, 0, len(wu.Words))
		for j, ww := range wu.Words {
			wts, err := NewTimestampRange(FromSeconds(ww.Start), FromSeconds(ww.End))
			if err != nil {
				return AudioTranscript{}, fmt.Errorf("utterance %d word %d: %w", i, j, err)
			}
			word, err := NewWord(ww.Text, wts, ww.Confidence)
			if err != nil {
				return AudioTranscript{}, fmt.Errorf("utterance %d word %d: %w", i, j, err)
			}
			words = append(words, word)
		}
		u, err := NewUtterance(UtteranceParams{
			Timestamp:      ts,
			Text:           wu.Text,
			SpeakerID:      wu.Speaker,
			Confidence:     wu.Confidence,
			Words:          words,
			TranslatedText: wu.TranslatedText,
			LearnerNotes:   wu.LearnerNotes,
		})
		if err != nil {
			return AudioTranscript{}, fmt.Errorf("utterance %d: %w", i, err)
		}
		utterances = append(utterances, u)
	}
	lang := ""
	if doc.TargetLanguage != nil {
		lang = *doc.TargetLanguage
	}
	return NewAudioTranscript(utterances, lang), nil
}

func seconds(d time.Duration) float64 {
	return round(d.Seconds(), 3)
}

// FromSeconds converts fractional seconds to a millisecond-precision duration.
func FromSeconds(secs float64) time.Duration {
	return time.Duration(math.Round(secs * 1000)) * time.Millisecond
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
