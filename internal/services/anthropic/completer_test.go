package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"scribe/internal/retry"
	"scribe/internal/services"
)

func TestCompleterJoinsTextBlocks(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "k" {
			t.Errorf("missing api key header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "{\"annotations\":"}, {"type": "text", "text": "[]}"}],
			"stop_reason": "end_turn", "usage": {"input_tokens": 1, "output_tokens": 1}
		}`))
	}))
	defer server.Close()

	c, err := NewCompleter(Config{APIKey: "k", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewCompleter: %v", err)
	}
	content, err := c.CompleteJSON(context.Background(), "system", "user")
	if err != nil || content != `{"annotations":[]}` {
		t.Fatalf("CompleteJSON = %q, %v", content, err)
	}
	if got["model"] != DefaultModel {
		t.Fatalf("model = %v", got["model"])
	}
	system, _ := json.Marshal(got["system"])
	if !strings.Contains(string(system), "JSON object") {
		t.Fatalf("system prompt lacks JSON instruction: %s", system)
	}
}

func TestCompleterMapsOverloaded(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer server.Close()

	c, _ := NewCompleter(Config{APIKey: "k", BaseURL: server.URL})
	_, err := c.CompleteJSON(context.Background(), "s", "u")
	var statusErr *retry.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 529 {
		t.Fatalf("expected 529 status error, got %v", err)
	}
	if delay, ok := retry.Retryable(err); !ok || delay.Seconds() != 3 {
		t.Fatalf("Retryable = %v, %v", delay, ok)
	}
	if calls != 1 {
		t.Fatalf("sdk retries should be disabled, got %d calls", calls)
	}
}

func TestNewCompleterRequiresKey(t *testing.T) {
	if _, err := NewCompleter(Config{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
