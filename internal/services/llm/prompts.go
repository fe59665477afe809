package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"scribe/internal/language"
)

const noContext = "None"

type promptItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func translationSystemPrompt(sourceLang, targetLang string) string {
	return fmt.Sprintf("You are a professional translator. Translate each %s item into %s. "+
		"Maintain the exact same number of items and return each translation under the SAME id as its input. "+
		"The provided 'context_reference' is for disambiguation and consistent terminology only; do NOT translate it. "+
		`Respond with JSON only: {"translations":[{"id":"0","text":"..."}]}`,
		language.DisplayName(sourceLang), language.DisplayName(targetLang))
}

func annotationSystemPrompt(lang string) string {
	name := language.DisplayName(lang)
	return fmt.Sprintf("You are a strict and detailed language tutor for %s learners. "+
		"Find linguistic artifacts in each speech segment under 'items_to_annotate'. "+
		"The 'context_reference' holds the preceding and following segments around a target marker; use it to understand the grammatical flow. "+
		"Continuations and reported speech that are correct in context are NOT errors. "+
		"Write a note for: grammar errors (give the correct form), speech artifacts such as repetitions, fillers or stutters, "+
		"fragments of abbreviations (name the likely full word), and slang or regionalisms a learner would not find in a dictionary. "+
		"Notes must be concise English. If a segment is textbook-perfect or correctly follows its context, the note must be exactly %q. "+
		`Respond with JSON only: {"annotations":[{"id":"0","note":"..."}]}`,
		name, annotationOK)
}

// itemsPrompt renders the user message: the joined context and the items
// keyed by their batch index.
func itemsPrompt(itemsKey string, texts, contextTexts []string) (string, error) {
	items := make([]promptItem, len(texts))
	for i, text := range texts {
		items[i] = promptItem{ID: strconv.Itoa(i), Text: text}
	}
	reference := noContext
	if len(contextTexts) > 0 {
		reference = strings.Join(contextTexts, "\n")
	}
	encoded, err := json.Marshal(map[string]any{
		"context_reference": reference,
		itemsKey:            items,
	})
	if err != nil {
		return "", fmt.Errorf("encode prompt: %w", err)
	}
	return string(encoded), nil
}

// itemID accepts ids echoed back as either strings or numbers.
type itemID string

func (id *itemID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = itemID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id: %w", err)
	}
	*id = itemID(n.String())
	return nil
}
