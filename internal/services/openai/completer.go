package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	gogpt "github.com/sashabaranov/go-openai"

	"scribe/internal/services"
)

// DefaultChatModel is used when no model is configured.
const DefaultChatModel = "gpt-4o-mini"

// Config holds the API settings shared by both adapters.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Temperature applies to chat completions only.
	Temperature float32
	// Timeout bounds each HTTP request; zero leaves the SDK default.
	Timeout time.Duration
}

func newClient(cfg Config) *gogpt.Client {
	clientCfg := gogpt.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimSuffix(base, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return gogpt.NewClientWithConfig(clientCfg)
}

// Completer issues JSON-mode chat completions.
type Completer struct {
	client      *gogpt.Client
	model       string
	temperature float32
}

// NewCompleter constructs a Completer.
func NewCompleter(cfg Config) (*Completer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "llm", "openai", "api key required", nil)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultChatModel
	}
	return &Completer{client: newClient(cfg), model: model, temperature: cfg.Temperature}, nil
}

// CompleteJSON sends one request and returns the message content.
func (c *Completer) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.TrimSpace(systemPrompt) == "" || strings.TrimSpace(userPrompt) == "" {
		return "", errors.New("openai complete: system and user prompts required")
	}
	resp, err := c.client.CreateChatCompletion(ctx, gogpt.ChatCompletionRequest{
		Model: c.model,
		Messages: []gogpt.ChatCompletionMessage{
			{Role: gogpt.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: gogpt.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature:    c.temperature,
		MaxTokens:      4096,
		ResponseFormat: &gogpt.ChatCompletionResponseFormat{Type: gogpt.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", mapError("openai complete", err)
	}
	for _, choice := range resp.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", services.Wrap(services.ErrTransient, "openai complete", "", "empty content", nil)
}
