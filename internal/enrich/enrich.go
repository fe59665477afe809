// Package enrich holds the text-level transforms applied after alignment:
// sentence segmentation, sub-word token merging, batched translation, and
// learner annotation. Each transform consumes and returns the full utterance
// sequence so they compose into an ordered chain.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scribe/internal/transcript"
)

// Enricher names accepted by NewChain.
const (
	NameTokenMerger  = "token_merger"
	NameSegmentation = "segmentation"
	NameTranslation  = "translation"
	NameAnnotation   = "annotation"
)

// Enricher transforms an utterance sequence. language is the source language
// of the audio.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, utterances []transcript.Utterance, language string) ([]transcript.Utterance, error)
}

// Builder constructs an enricher on demand so unused ones never touch their
// dependencies.
type Builder func() (Enricher, error)

// NewChain assembles enrichers in the order names lists them.
func NewChain(names []string, builders map[string]Builder) ([]Enricher, error) {
	chain := make([]Enricher, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		build, ok := builders[name]
		if !ok || build == nil {
			return nil, fmt.Errorf("enricher %q is not available", name)
		}
		enricher, err := build()
		if err != nil {
			return nil, fmt.Errorf("build enricher %q: %w", name, err)
		}
		chain = append(chain, enricher)
	}
	return chain, nil
}

// Names returns the name of each enricher in order.
func Names(chain []Enricher) []string {
	names := make([]string, len(chain))
	for i, e := range chain {
		names[i] = e.Name()
	}
	return names
}

func texts(utterances []transcript.Utterance) []string {
	out := make([]string, len(utterances))
	for i, u := range utterances {
		out[i] = u.Text()
	}
	return out
}

// aborted returns the error that ends an enricher early: the run's context is
// done, or the collaborator reported cancellation. A single request timing
// out under a live ctx stays a per-batch failure.
func aborted(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
