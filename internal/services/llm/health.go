package llm

import (
	"context"
	"errors"
	"fmt"
)

const (
	healthSystemPrompt = "You must respond with JSON only."
	healthUserPrompt   = `Respond with {"ok":true}`
)

// Ping verifies any Completer by asking for a fixed JSON acknowledgement.
// Providers without a dedicated health endpoint use it as their probe.
func Ping(ctx context.Context, completer Completer) error {
	content, err := completer.CompleteJSON(ctx, healthSystemPrompt, healthUserPrompt)
	if err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	return checkHealthPayload(content)
}

func checkHealthPayload(content string) error {
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}
