package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/services"
	"scribe/internal/testsupport"
	"scribe/internal/transcript"
)

func TestRunWritesTranscriptAndHistory(t *testing.T) {
	env := setupCLITestEnv(t, "")
	(&fakeStack{turns: []transcript.Utterance{speakerTurn(t, 0, 2*time.Second, "SPEAKER_00")}}).install(t)

	source := filepath.Join(env.baseDir, "audio", "interview.mp3")
	testsupport.WriteFile(t, source, 128)

	out, _, err := runCLI(t, []string{"run", source}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	requireContains(t, out, "[OK] Completed")
	requireContains(t, out, "transcription")

	outputPath := filepath.Join(env.outputDir, "interview.json")
	saved, err := (transcript.FileRepository{}).Load(outputPath)
	if err != nil {
		t.Fatalf("load transcript: %v", err)
	}
	if saved.Len() != 1 {
		t.Fatalf("expected 1 utterance, got %d", saved.Len())
	}
	if got := saved.Utterances()[0].SpeakerID(); got != "SPEAKER_00" {
		t.Fatalf("speaker = %q", got)
	}
	if saved.TargetLanguage() != "de" {
		t.Fatalf("target language = %q", saved.TargetLanguage())
	}

	historyOut, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, historyOut, "completed")
	requireContains(t, historyOut, outputPath)

	jobID := firstJobID(t, historyOut)
	eventsOut, _, err := runCLI(t, []string{"history", "events", jobID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("history events: %v", err)
	}
	requireContains(t, eventsOut, "audio_ingested")
	requireContains(t, eventsOut, "job_completed")
	requireContains(t, eventsOut, "StepName=alignment")

	showOut, _, err := runCLI(t, []string{"show", outputPath}, "")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, showOut, "Hallo")
	requireContains(t, showOut, "1 utterances, 1 speakers")
}

func TestRunFailureExitsNonZeroAndIsRecorded(t *testing.T) {
	env := setupCLITestEnv(t, "")
	boom := services.Wrap(services.ErrExternalTool, "transcription", "whisper", "whisper-cli exited 1", errors.New("exit status 1"))
	(&fakeStack{transcribeErr: boom}).install(t)

	source := filepath.Join(env.baseDir, "broken.wav")
	testsupport.WriteFile(t, source, 16)

	out, _, err := runCLI(t, []string{"run", source}, env.configPath)
	if err == nil {
		t.Fatal("expected failing run to return an error")
	}
	requireContains(t, err.Error(), "failed")
	requireContains(t, out, "[ERROR] Failed")
	requireContains(t, out, "external_tool")

	if _, statErr := os.Stat(filepath.Join(env.outputDir, "broken.json")); !os.IsNotExist(statErr) {
		t.Fatalf("failed job must not write a transcript, stat err %v", statErr)
	}

	historyOut, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, historyOut, "failed")
	requireContains(t, historyOut, "external_tool")
}

func TestRunRejectsMissingSource(t *testing.T) {
	env := setupCLITestEnv(t, "")
	(&fakeStack{}).install(t)

	_, _, err := runCLI(t, []string{"run", filepath.Join(env.baseDir, "nope.wav")}, env.configPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunRejectsInvertedSpeakerBounds(t *testing.T) {
	env := setupCLITestEnv(t, "")
	(&fakeStack{}).install(t)
	source := filepath.Join(env.baseDir, "a.wav")
	testsupport.WriteFile(t, source, 16)

	_, _, err := runCLI(t, []string{"run", source, "--min-speakers", "3", "--max-speakers", "2"}, env.configPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyRunOverrides(t *testing.T) {
	base := config.Default()
	base.LLM.APIKey = "key"

	cfg, err := applyRunOverrides(&base, runOptions{enrichers: "Segmentation, translation", target: "en_gb"})
	if err != nil {
		t.Fatalf("applyRunOverrides: %v", err)
	}
	if strings.Join(cfg.Pipeline.Enrichers, ",") != "segmentation,translation" {
		t.Fatalf("enrichers = %v", cfg.Pipeline.Enrichers)
	}
	if cfg.Translation.TargetLanguage != "en-GB" {
		t.Fatalf("target = %q", cfg.Translation.TargetLanguage)
	}
	if strings.Join(base.Pipeline.Enrichers, ",") != "segmentation,token_merger" {
		t.Fatalf("base config mutated: %v", base.Pipeline.Enrichers)
	}

	if _, err := applyRunOverrides(&base, runOptions{enrichers: "karaoke"}); err == nil {
		t.Fatal("expected unknown enricher to be rejected")
	}
	if _, err := applyRunOverrides(&base, runOptions{enrichers: "translation"}); err == nil {
		t.Fatal("expected translation without a target to be rejected")
	}
}

func firstJobID(t *testing.T, table string) string {
	t.Helper()
	for _, line := range strings.Split(table, "\n") {
		for _, field := range strings.Fields(strings.ReplaceAll(line, "│", " ")) {
			if len(field) == 36 && strings.Count(field, "-") == 4 {
				return field
			}
		}
	}
	t.Fatalf("no job id in %q", table)
	return ""
}
