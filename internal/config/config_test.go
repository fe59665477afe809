package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"scribe/internal/config"
)

func clearLLMEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SCRIBE_LLM_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "SCRIBE_REDIS_PASSWORD"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearLLMEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "scribe", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, ".local", "share", "scribe", "work"); cfg.Paths.WorkDir != want {
		t.Fatalf("work dir = %q, want %q", cfg.Paths.WorkDir, want)
	}
	if want := filepath.Join(tempHome, "scribe"); cfg.Paths.OutputDir != want {
		t.Fatalf("output dir = %q, want %q", cfg.Paths.OutputDir, want)
	}
	if cfg.HistoryPath() != filepath.Join(tempHome, ".local", "share", "scribe", "history.db") {
		t.Fatalf("unexpected history path %q", cfg.HistoryPath())
	}
	if cfg.Transcription.Backend != config.TranscriptionWhisperCPP {
		t.Fatalf("unexpected backend %q", cfg.Transcription.Backend)
	}
	if !strings.HasPrefix(cfg.Transcription.WhisperCPPModel, tempHome) {
		t.Fatalf("model path not expanded: %q", cfg.Transcription.WhisperCPPModel)
	}
	if cfg.Diarization.Backend != config.DiarizationNone {
		t.Fatalf("unexpected diarization backend %q", cfg.Diarization.Backend)
	}
	if cfg.SegmentMaxDuration() != 15*time.Second {
		t.Fatalf("unexpected segment max duration %s", cfg.SegmentMaxDuration())
	}
	if cfg.Translation.BatchSize != 10 || cfg.Translation.ContextSize != 0 {
		t.Fatalf("unexpected translation defaults %+v", cfg.Translation)
	}
	if cfg.Annotation.BatchSize != 1 || cfg.Annotation.ContextSize != 10 {
		t.Fatalf("unexpected annotation defaults %+v", cfg.Annotation)
	}
	if cfg.RetryBaseDelay() != 65*time.Second || cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("unexpected retry defaults %+v", cfg.Retry)
	}
	if cfg.NeedsLLM() {
		t.Fatal("default chain should not need an LLM")
	}
}

func TestLoadCustomConfig(t *testing.T) {
	clearLLMEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
output_dir = "~/transcripts"

[pipeline]
language = "de"
enrichers = ["token_merger", " Segmentation ", "translation"]

[translation]
target_language = "en"
batch_size = 3
context_size = 2

[llm]
provider = "anthropic"
api_key = "sk-test"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config to be found at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "transcripts") {
		t.Fatalf("unexpected output dir %q", cfg.Paths.OutputDir)
	}
	wantChain := []string{"token_merger", "segmentation", "translation"}
	if strings.Join(cfg.Pipeline.Enrichers, ",") != strings.Join(wantChain, ",") {
		t.Fatalf("unexpected enrichers %v", cfg.Pipeline.Enrichers)
	}
	if !cfg.NeedsLLM() {
		t.Fatal("translation should require an LLM")
	}
	if cfg.LLM.Model == "google/gemini-3-flash-preview" {
		t.Fatalf("expected provider-specific default model, got %q", cfg.LLM.Model)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\nstaging_dir = \"/tmp\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLLMKeyEnvFallback(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "or-key")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := "[pipeline]\nenrichers = [\"annotation\"]\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "or-key" {
		t.Fatalf("expected key from OPENROUTER_API_KEY, got %q", cfg.LLM.APIKey)
	}

	t.Setenv("SCRIBE_LLM_API_KEY", "scribe-key")
	cfg, _, _, err = config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "scribe-key" {
		t.Fatalf("expected SCRIBE_LLM_API_KEY to win, got %q", cfg.LLM.APIKey)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown enricher", func(c *config.Config) { c.Pipeline.Enrichers = []string{"summarize"} }, "unknown enricher"},
		{"duplicate enricher", func(c *config.Config) { c.Pipeline.Enrichers = []string{"segmentation", "segmentation"} }, "more than once"},
		{"translation without target", func(c *config.Config) {
			c.Pipeline.Enrichers = []string{"translation"}
			c.LLM.APIKey = "k"
		}, "target_language"},
		{"translation without key", func(c *config.Config) {
			c.Pipeline.Enrichers = []string{"translation"}
			c.Translation.TargetLanguage = "en"
		}, "llm.api_key"},
		{"unknown backend", func(c *config.Config) { c.Transcription.Backend = "vosk" }, "transcription.backend"},
		{"openai without key", func(c *config.Config) { c.Transcription.Backend = config.TranscriptionOpenAI }, "openai_api_key"},
		{"rttm without command", func(c *config.Config) { c.Diarization.Backend = config.DiarizationRTTM }, "diarization.command"},
		{"rttm missing placeholder", func(c *config.Config) {
			c.Diarization.Backend = config.DiarizationRTTM
			c.Diarization.Command = "diarize {audio}"
		}, "{rttm}"},
		{"speaker bounds", func(c *config.Config) {
			c.Diarization.MinSpeakers = 4
			c.Diarization.MaxSpeakers = 2
		}, "min_speakers"},
		{"unknown provider", func(c *config.Config) { c.LLM.Provider = "bard" }, "llm.provider"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if decoded.Transcription.Backend != config.TranscriptionWhisperCPP {
		t.Fatalf("unexpected sample backend %q", decoded.Transcription.Backend)
	}
	if decoded.Retry.MaxAttempts != 3 {
		t.Fatalf("unexpected sample retry attempts %d", decoded.Retry.MaxAttempts)
	}
}

func TestEncodeMasksSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "sk-secret"
	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if strings.Contains(out, "sk-secret") {
		t.Fatalf("encoded config leaks api key:\n%s", out)
	}
	if !strings.Contains(out, "[transcription]") {
		t.Fatalf("encoded config missing sections:\n%s", out)
	}
}

func TestProviderSwitchDropsOpenRouterDefaults(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `[llm]
provider = "anthropic"
base_url = "https://openrouter.ai/api/v1/chat/completions"
model = "google/gemini-3-flash-preview"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.BaseURL != "" {
		t.Fatalf("expected OpenRouter base URL to be cleared, got %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model != "claude-sonnet-4-5" {
		t.Fatalf("expected provider default model, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "ant-key" {
		t.Fatalf("expected key from ANTHROPIC_API_KEY, got %q", cfg.LLM.APIKey)
	}
}
