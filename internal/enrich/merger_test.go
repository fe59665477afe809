package enrich_test

import (
	"context"
	"testing"

	"scribe/internal/enrich"
	"scribe/internal/transcript"
)

func TestTokenMergerJoinsContinuations(t *testing.T) {
	u := buildUtterance(t, "A",
		tok{" Hal", 0, 0.5, 0.8},
		tok{"lo", 0.5, 1, 0.6},
		tok{" Welt", 1, 2, 0.9},
	)
	got, err := enrich.TokenMerger{}.Enrich(context.Background(), []transcript.Utterance{u}, "de")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	words := got[0].Words()
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[0].Text() != "Hallo" || words[0].Timestamp() != transcript.MustRange(0, sec(1)) {
		t.Fatalf("unexpected merged word %q %s", words[0].Text(), words[0].Timestamp())
	}
	if c := words[0].Confidence(); c < 0.6999 || c > 0.7001 {
		t.Fatalf("confidence should be averaged, got %v", c)
	}
	if words[1].Text() != "Welt" {
		t.Fatalf("new word should be trimmed, got %q", words[1].Text())
	}
	if got[0].Text() != "Hallo Welt" {
		t.Fatalf("utterance text = %q", got[0].Text())
	}
	if got[0].Timestamp() != u.Timestamp() || got[0].SpeakerID() != "A" {
		t.Fatal("merger changed utterance bounds or speaker")
	}
}

func TestTokenMergerAveragesPairwise(t *testing.T) {
	u := buildUtterance(t, "A",
		tok{" a", 0, 1, 1.0},
		tok{"b", 1, 2, 0.0},
		tok{"c", 2, 3, 0.5},
	)
	got, err := enrich.TokenMerger{}.Enrich(context.Background(), []transcript.Utterance{u}, "en")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	w := got[0].Words()[0]
	if w.Text() != "abc" || w.Confidence() != 0.5 {
		t.Fatalf("merged %q confidence %v, want abc 0.5", w.Text(), w.Confidence())
	}
}

func TestTokenMergerFirstTokenStartsWord(t *testing.T) {
	u := buildUtterance(t, "A", tok{"Guten", 0, 1, 1}, tok{" Tag", 1, 2, 1})
	got, err := enrich.TokenMerger{}.Enrich(context.Background(), []transcript.Utterance{u}, "de")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got[0].Text() != "Guten Tag" {
		t.Fatalf("text = %q", got[0].Text())
	}
}

func TestTokenMergerPassesWordlessUtterances(t *testing.T) {
	u := plainUtterance(t, "kept as is", 0, 1)
	got, err := enrich.TokenMerger{}.Enrich(context.Background(), []transcript.Utterance{u}, "en")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if got[0].Text() != "kept as is" {
		t.Fatalf("text = %q", got[0].Text())
	}
}
