package llm

import (
	"context"
	"errors"
	"testing"
)

func TestPing(t *testing.T) {
	ok := &scriptedCompleter{responses: []string{"```json\n{\"ok\": true}\n```"}}
	if err := Ping(context.Background(), ok); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if ok.system != healthSystemPrompt || ok.user != healthUserPrompt {
		t.Fatalf("unexpected prompts %q / %q", ok.system, ok.user)
	}

	if err := Ping(context.Background(), &scriptedCompleter{responses: []string{`{"ok": false}`}}); err == nil {
		t.Fatal("expected ok=false to fail")
	}

	boom := errors.New("401")
	if err := Ping(context.Background(), &scriptedCompleter{responses: []string{""}, errs: []error{boom}}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped completer error, got %v", err)
	}
}
