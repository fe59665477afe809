// Package anthropic adapts github.com/anthropics/anthropic-sdk-go to
// llm.Completer. The Messages API has no JSON response mode, so the system
// prompt asks for bare JSON and callers decode with llm.DecodeJSON, which
// tolerates fences.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"scribe/internal/retry"
	"scribe/internal/services"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

const jsonOnly = "Respond with a single JSON object and nothing else."

// Config holds the API settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
}

// Completer issues single-shot message requests.
type Completer struct {
	client      sdk.Client
	model       string
	temperature float64
	maxTokens   int64
}

// NewCompleter constructs a Completer. SDK-level retries are disabled; the
// enrichers retry through the shared policy.
func NewCompleter(cfg Config) (*Completer, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, services.Wrap(services.ErrConfiguration, "llm", "anthropic", "api key required", nil)
	}
	opts := []option.RequestOption{option.WithAPIKey(key), option.WithMaxRetries(0)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Completer{
		client:      sdk.NewClient(opts...),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// CompleteJSON sends one request and returns the concatenated text blocks.
func (c *Completer) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(systemPrompt) == "" || strings.TrimSpace(userPrompt) == "" {
		return "", errors.New("anthropic complete: system and user prompts required")
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []sdk.TextBlockParam{{Text: systemPrompt + "\n\n" + jsonOnly}},
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(userPrompt))},
	}
	if c.temperature > 0 {
		params.Temperature = sdk.Float(c.temperature)
	}
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
			status := &retry.StatusError{StatusCode: apiErr.StatusCode, Body: apiErr.RawJSON()}
			if apiErr.Response != nil {
				status.RetryAfter, _ = retry.ParseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return "", fmt.Errorf("anthropic complete: %w", status)
		}
		return "", fmt.Errorf("anthropic complete: %w", err)
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return "", services.Wrap(services.ErrTransient, "anthropic complete", "", fmt.Sprintf("empty content (stop_reason=%s)", resp.StopReason), nil)
	}
	return content, nil
}
