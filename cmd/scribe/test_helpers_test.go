package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scribe/internal/audio"
	"scribe/internal/config"
	"scribe/internal/diarize"
	"scribe/internal/enrich"
	"scribe/internal/transcript"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	stateDir   string
}

func setupCLITestEnv(t *testing.T, extra string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("SCRIBE_LLM_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		outputDir:  filepath.Join(base, "output"),
		stateDir:   filepath.Join(base, "state"),
	}
	content := fmt.Sprintf(`[paths]
work_dir = %q
output_dir = %q
log_dir = %q
state_dir = %q

[pipeline]
language = "de"
enrichers = ["token_merger"]

[logging]
level = "error"
%s`, filepath.Join(base, "work"), env.outputDir, filepath.Join(base, "logs"), env.stateDir, extra)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// fakeStack installs collaborators that never leave the process.
type fakeStack struct {
	transcribeErr error
	turns         []transcript.Utterance
}

func (f *fakeStack) install(t *testing.T) {
	t.Helper()
	previous := defaultStackFactory
	defaultStackFactory = func(_ context.Context, cfg *config.Config, logger *slog.Logger) (*stack, error) {
		chain, err := enrich.NewChain(cfg.Pipeline.Enrichers, map[string]enrich.Builder{
			enrich.NameTokenMerger: func() (enrich.Enricher, error) { return enrich.TokenMerger{}, nil },
		})
		if err != nil {
			return nil, err
		}
		return &stack{
			normalizer:  fakeNormalizer{},
			transcriber: fakeTranscriber{err: f.transcribeErr},
			diarizer:    fakeDiarizer{turns: f.turns},
			enrichers:   chain,
		}, nil
	}
	t.Cleanup(func() { defaultStackFactory = previous })
}

type fakeNormalizer struct{}

func (fakeNormalizer) Normalize(_ context.Context, source string) (audio.Artifact, error) {
	return audio.Artifact{Path: source + ".wav", Format: "wav", SampleRate: 16000}, nil
}

type fakeTranscriber struct{ err error }

func (f fakeTranscriber) Transcribe(context.Context, audio.Artifact, string) ([]transcript.Utterance, error) {
	if f.err != nil {
		return nil, f.err
	}
	hallo, _ := transcript.NewWord(" Hal", transcript.MustRange(0, 400*time.Millisecond), 0.9)
	lo, _ := transcript.NewWord("lo", transcript.MustRange(400*time.Millisecond, 800*time.Millisecond), 0.9)
	welt, _ := transcript.NewWord(" Welt", transcript.MustRange(800*time.Millisecond, 1500*time.Millisecond), 0.8)
	utt, err := transcript.NewUtterance(transcript.UtteranceParams{
		Timestamp:  transcript.MustRange(0, 1500*time.Millisecond),
		Text:       " Hallo Welt",
		SpeakerID:  transcript.UnknownSpeaker,
		Confidence: 0.85,
		Words:      []transcript.Word{hallo, lo, welt},
	})
	if err != nil {
		return nil, err
	}
	return []transcript.Utterance{utt}, nil
}

type fakeDiarizer struct{ turns []transcript.Utterance }

func (f fakeDiarizer) Diarize(context.Context, audio.Artifact, diarize.Options) ([]transcript.Utterance, error) {
	return f.turns, nil
}

func speakerTurn(t *testing.T, start, end time.Duration, speaker string) transcript.Utterance {
	t.Helper()
	u, err := transcript.NewUtterance(transcript.UtteranceParams{
		Timestamp:  transcript.MustRange(start, end),
		SpeakerID:  speaker,
		Confidence: 1,
	})
	if err != nil {
		t.Fatalf("NewUtterance: %v", err)
	}
	return u
}
