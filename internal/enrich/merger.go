package enrich

import (
	"context"
	"fmt"
	"strings"

	"scribe/internal/transcript"
)

// TokenMerger reassembles sub-word tokens into words. A token without a
// leading space continues the previous word.
type TokenMerger struct{}

func (TokenMerger) Name() string { return NameTokenMerger }

func (TokenMerger) Enrich(_ context.Context, utterances []transcript.Utterance, _ string) ([]transcript.Utterance, error) {
	out := make([]transcript.Utterance, 0, len(utterances))
	for _, u := range utterances {
		if u.WordCount() == 0 {
			out = append(out, u)
			continue
		}
		merged, err := mergeTokens(u.Words())
		if err != nil {
			return nil, err
		}
		texts := make([]string, len(merged))
		for i, w := range merged {
			texts[i] = w.Text()
		}
		params := u.Params()
		params.Words = merged
		params.Text = strings.Join(texts, " ")
		rebuilt, err := transcript.NewUtterance(params)
		if err != nil {
			return nil, err
		}
		out = append(out, rebuilt)
	}
	return out, nil
}

func mergeTokens(tokens []transcript.Word) ([]transcript.Word, error) {
	merged := make([]transcript.Word, 0, len(tokens))
	for _, token := range tokens {
		if len(merged) > 0 && !strings.HasPrefix(token.Text(), " ") {
			last := merged[len(merged)-1]
			span, err := transcript.NewTimestampRange(last.Timestamp().Start(), token.Timestamp().End())
			if err != nil {
				return nil, fmt.Errorf("merge token %q: %w", token.Text(), err)
			}
			word, err := transcript.NewWord(
				last.Text()+strings.TrimSpace(token.Text()),
				span,
				(last.Confidence()+token.Confidence())/2,
			)
			if err != nil {
				return nil, err
			}
			merged[len(merged)-1] = word
			continue
		}
		word, err := transcript.NewWord(strings.TrimSpace(token.Text()), token.Timestamp(), token.Confidence())
		if err != nil {
			return nil, err
		}
		merged = append(merged, word)
	}
	return merged, nil
}
