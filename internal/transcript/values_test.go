package transcript_test

import (
	"errors"
	"slices"
	"testing"
	"time"

	"scribe/internal/transcript"
)

func sec(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

func word(t *testing.T, text string, start, end float64, conf float64) transcript.Word {
	t.Helper()
	w, err := transcript.NewWord(text, transcript.MustRange(sec(start), sec(end)), conf)
	if err != nil {
		t.Fatalf("NewWord: %v", err)
	}
	return w
}

func TestTimestampRangeValidation(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Duration
		wantErr    bool
	}{
		{"ordered", sec(1), sec(2), false},
		{"empty", sec(1), sec(1), false},
		{"reversed", sec(2), sec(1), true},
		{"negative", -sec(1), sec(1), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := transcript.NewTimestampRange(tc.start, tc.end)
			if tc.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, transcript.ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
		})
	}
}

func TestTimestampRangeOverlap(t *testing.T) {
	a := transcript.MustRange(sec(1), sec(4))
	tests := []struct {
		name  string
		other transcript.TimestampRange
		want  time.Duration
	}{
		{"inside", transcript.MustRange(sec(2), sec(3)), sec(1)},
		{"partial", transcript.MustRange(sec(3), sec(6)), sec(1)},
		{"touching", transcript.MustRange(sec(4), sec(5)), 0},
		{"disjoint", transcript.MustRange(sec(7), sec(9)), 0},
	}
	for _, tc := range tests {
		if got := a.Overlap(tc.other); got != tc.want {
			t.Fatalf("%s: overlap = %s, want %s", tc.name, got, tc.want)
		}
		if got := tc.other.Overlap(a); got != tc.want {
			t.Fatalf("%s: overlap not symmetric: %s", tc.name, got)
		}
	}
}

func TestWordRejectsBadConfidence(t *testing.T) {
	for _, conf := range []float64{-0.1, 1.01} {
		_, err := transcript.NewWord("x", transcript.MustRange(0, sec(1)), conf)
		if !errors.Is(err, transcript.ErrInvalidConfidence) {
			t.Fatalf("confidence %v: expected ErrInvalidConfidence, got %v", conf, err)
		}
	}
}

func TestUtteranceRejectsWordOutsideBounds(t *testing.T) {
	_, err := transcript.NewUtterance(transcript.UtteranceParams{
		Timestamp:  transcript.MustRange(sec(1), sec(2)),
		Text:       "late",
		Confidence: 1,
		Words:      []transcript.Word{word(t, "late", 1.5, 2.5, 0.9)},
	})
	if !errors.Is(err, transcript.ErrWordOutOfBounds) {
		t.Fatalf("expected ErrWordOutOfBounds, got %v", err)
	}

	_, err = transcript.NewUtterance(transcript.UtteranceParams{
		Timestamp:  transcript.MustRange(sec(1), sec(2)),
		Confidence: 1,
		Words:      []transcript.Word{word(t, "early", 0.5, 1.5, 0.9)},
	})
	if !errors.Is(err, transcript.ErrWordOutOfBounds) {
		t.Fatalf("expected ErrWordOutOfBounds for early word, got %v", err)
	}
}

func TestUtteranceCopiesAreIndependent(t *testing.T) {
	words := []transcript.Word{word(t, "Hallo", 0, 1, 0.9)}
	u, err := transcript.NewUtterance(transcript.UtteranceParams{
		Timestamp:  transcript.MustRange(0, sec(1)),
		Text:       "Hallo",
		SpeakerID:  transcript.UnknownSpeaker,
		Confidence: 0.9,
		Words:      words,
	})
	if err != nil {
		t.Fatalf("NewUtterance: %v", err)
	}
	words[0] = word(t, "changed", 0, 1, 0.1)
	if u.Words()[0].Text() != "Hallo" {
		t.Fatal("utterance shares caller's word slice")
	}

	moved := u.WithSpeaker("SPEAKER_00").WithTranslation("Hello")
	if u.SpeakerID() != transcript.UnknownSpeaker {
		t.Fatalf("WithSpeaker mutated original: %q", u.SpeakerID())
	}
	if _, ok := u.TranslatedText(); ok {
		t.Fatal("WithTranslation mutated original")
	}
	if text, ok := moved.TranslatedText(); !ok || text != "Hello" {
		t.Fatalf("unexpected translation %q (%v)", text, ok)
	}
	if moved.Text() != "Hallo" || moved.Confidence() != 0.9 || moved.WordCount() != 1 {
		t.Fatal("copy lost fields")
	}

	note := "greeting"
	annotated := moved.WithLearnerNotes(&note)
	note = "mutated"
	if got, _ := annotated.LearnerNotes(); got != "greeting" {
		t.Fatalf("learner notes aliased caller pointer: %q", got)
	}
	if _, ok := annotated.WithLearnerNotes(nil).LearnerNotes(); ok {
		t.Fatal("nil notes should clear")
	}
}

func TestAudioTranscriptDerivedFields(t *testing.T) {
	empty := transcript.NewAudioTranscript(nil, "")
	if empty.TotalDuration() != 0 || len(empty.Speakers()) != 0 {
		t.Fatal("empty transcript should have zero duration and no speakers")
	}

	mk := func(speaker string, start, end float64) transcript.Utterance {
		u, err := transcript.NewUtterance(transcript.UtteranceParams{
			Timestamp:  transcript.MustRange(sec(start), sec(end)),
			SpeakerID:  speaker,
			Confidence: 1,
		})
		if err != nil {
			t.Fatalf("NewUtterance: %v", err)
		}
		return u
	}
	tr := transcript.NewAudioTranscript([]transcript.Utterance{
		mk("B", 0, 2), mk("A", 2, 4), mk("B", 4, 7.5),
	}, "en")
	if got := tr.Speakers(); !slices.Equal(got, []string{"A", "B"}) {
		t.Fatalf("speakers = %v", got)
	}
	if tr.TotalDuration() != sec(7.5) {
		t.Fatalf("total duration = %s", tr.TotalDuration())
	}
}
