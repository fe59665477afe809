package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"scribe/internal/retry"
)

type scriptedCompleter struct {
	responses []string
	errs      []error
	calls     int
	system    string
	user      string
}

func (s *scriptedCompleter) CompleteJSON(_ context.Context, system, user string) (string, error) {
	i := s.calls
	s.calls++
	s.system, s.user = system, user
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return s.responses[len(s.responses)-1], nil
}

func noSleep() (retry.Policy, *[]time.Duration) {
	var slept []time.Duration
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   65 * time.Second,
		MaxDelay:    10 * time.Minute,
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	}, &slept
}

func TestTranslatorMapsByID(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		`{"translations":[{"id":"1","text":" second "},{"id":0,"text":"first"}]}`,
	}}
	policy, _ := noSleep()
	tr := NewTranslator(completer, policy, nil)

	got, err := tr.Translate(context.Background(), []string{"erste", "zweite", "dritte"}, "de", "en", []string{"davor"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	want := []string{"first", "second", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %q, want %q", got, want)
		}
	}

	if !strings.Contains(completer.system, "German") || !strings.Contains(completer.system, "English") {
		t.Fatalf("system prompt lacks language names: %s", completer.system)
	}
	var user struct {
		Context string       `json:"context_reference"`
		Items   []promptItem `json:"items_to_translate"`
	}
	if err := json.Unmarshal([]byte(completer.user), &user); err != nil {
		t.Fatalf("user prompt is not JSON: %v", err)
	}
	if user.Context != "davor" || len(user.Items) != 3 || user.Items[2].ID != "2" || user.Items[2].Text != "dritte" {
		t.Fatalf("unexpected user prompt %+v", user)
	}
}

func TestTranslatorColdStartContext(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{`{"translations":[{"id":"0","text":"hi"}]}`}}
	policy, _ := noSleep()
	if _, err := NewTranslator(completer, policy, nil).Translate(context.Background(), []string{"hallo"}, "de", "en", nil); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if !strings.Contains(completer.user, `"context_reference":"None"`) {
		t.Fatalf("expected None context, got %s", completer.user)
	}
}

func TestTranslatorRetriesRateLimitWithBackoff(t *testing.T) {
	rateLimited := &retry.StatusError{StatusCode: 429}
	completer := &scriptedCompleter{
		errs:      []error{rateLimited, rateLimited, nil},
		responses: []string{"", "", `{"translations":[{"id":"0","text":"ok"}]}`},
	}
	policy, slept := noSleep()
	got, err := NewTranslator(completer, policy, nil).Translate(context.Background(), []string{"x"}, "de", "en", nil)
	if err != nil || got[0] != "ok" {
		t.Fatalf("Translate = %q, %v", got, err)
	}
	if len(*slept) != 2 || (*slept)[0] != 65*time.Second || (*slept)[1] != 130*time.Second {
		t.Fatalf("slept = %v", *slept)
	}
}

func TestTranslatorFallsBackWhenExhausted(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{"not json at all"}}
	policy, slept := noSleep()
	got, err := NewTranslator(completer, policy, nil).Translate(context.Background(), []string{"a", "b"}, "de", "en", nil)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(got) != 2 || got[0] != "" || got[1] != "" {
		t.Fatalf("expected empty fallback, got %q", got)
	}
	if completer.calls != 3 || len(*slept) != 2 {
		t.Fatalf("calls=%d slept=%v", completer.calls, *slept)
	}
}

func TestTranslatorDoesNotRetryClientErrors(t *testing.T) {
	completer := &scriptedCompleter{errs: []error{&retry.StatusError{StatusCode: 401}}, responses: []string{""}}
	policy, _ := noSleep()
	got, err := NewTranslator(completer, policy, nil).Translate(context.Background(), []string{"a"}, "de", "en", nil)
	if err != nil || got[0] != "" {
		t.Fatalf("Translate = %q, %v", got, err)
	}
	if completer.calls != 1 {
		t.Fatalf("expected single call, got %d", completer.calls)
	}
}

func TestTranslatorPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	completer := &scriptedCompleter{responses: []string{`{}`}}
	policy, _ := noSleep()
	_, err := NewTranslator(completer, policy, nil).Translate(ctx, []string{"a"}, "de", "en", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestTranslatorEmptyInput(t *testing.T) {
	completer := &scriptedCompleter{}
	got, err := NewTranslator(completer, retry.Policy{}, nil).Translate(context.Background(), nil, "de", "en", nil)
	if err != nil || got != nil || completer.calls != 0 {
		t.Fatalf("Translate(nil) = %v, %v, calls=%d", got, err, completer.calls)
	}
}
