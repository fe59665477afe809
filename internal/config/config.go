package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Pipeline selects the default source language and the enrichment chain.
type Pipeline struct {
	Language  string   `toml:"language"`
	Enrichers []string `toml:"enrichers"`
}

// Audio contains normalization settings.
type Audio struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
	SampleRate   int    `toml:"sample_rate"`
}

// Transcription selects and configures the speech-to-text backend.
type Transcription struct {
	Backend          string `toml:"backend"`
	WhisperCPPBinary string `toml:"whisper_cpp_binary"`
	WhisperCPPModel  string `toml:"whisper_cpp_model"`
	Threads          int    `toml:"threads"`
	WhisperXModel    string `toml:"whisperx_model"`
	WhisperXCUDA     bool   `toml:"whisperx_cuda"`
	OpenAIModel      string `toml:"openai_model"`
	OpenAIAPIKey     string `toml:"openai_api_key"`
}

// Diarization selects the speaker diarization backend.
type Diarization struct {
	Backend     string `toml:"backend"`
	Command     string `toml:"command"`
	NumSpeakers int    `toml:"num_speakers"`
	MinSpeakers int    `toml:"min_speakers"`
	MaxSpeakers int    `toml:"max_speakers"`
}

// Segmentation bounds the length of emitted utterances.
type Segmentation struct {
	MaxDurationSeconds float64 `toml:"max_duration_seconds"`
}

// Translation configures the batched translation enricher.
type Translation struct {
	TargetLanguage string `toml:"target_language"`
	BatchSize      int    `toml:"batch_size"`
	ContextSize    int    `toml:"context_size"`
}

// Annotation configures the learner-notes enricher.
type Annotation struct {
	BatchSize   int `toml:"batch_size"`
	ContextSize int `toml:"context_size"`
}

// LLM contains shared LLM connection settings used by translation and annotation.
type LLM struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Retry configures backoff for remote LLM calls.
type Retry struct {
	MaxAttempts      int     `toml:"max_attempts"`
	BaseDelaySeconds float64 `toml:"base_delay_seconds"`
	MaxDelaySeconds  float64 `toml:"max_delay_seconds"`
}

// Cache configures the optional Redis translation cache. An empty address disables it.
type Cache struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTLHours      int    `toml:"ttl_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for scribe.
//
// Configuration sections by subsystem:
//   - Paths: work, output, log, and state directories
//   - Pipeline: default source language and enricher chain
//   - Audio, Transcription, Diarization: collaborator backends
//   - Segmentation, Translation, Annotation: enricher tuning
//   - LLM, Retry, Cache: remote model access
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Audio         Audio         `toml:"audio"`
	Transcription Transcription `toml:"transcription"`
	Diarization   Diarization   `toml:"diarization"`
	Segmentation  Segmentation  `toml:"segmentation"`
	Translation   Translation   `toml:"translation"`
	Annotation    Annotation    `toml:"annotation"`
	LLM           LLM           `toml:"llm"`
	Retry         Retry         `toml:"retry"`
	Cache         Cache         `toml:"cache"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work, output, log, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the SQLite job history location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// SegmentMaxDuration returns the segmentation bound as a duration.
func (c *Config) SegmentMaxDuration() time.Duration {
	return secondsToDuration(c.Segmentation.MaxDurationSeconds)
}

// RetryBaseDelay returns the first backoff interval.
func (c *Config) RetryBaseDelay() time.Duration {
	return secondsToDuration(c.Retry.BaseDelaySeconds)
}

// RetryMaxDelay returns the backoff ceiling.
func (c *Config) RetryMaxDelay() time.Duration {
	return secondsToDuration(c.Retry.MaxDelaySeconds)
}

// CacheTTL returns how long cached translations live.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// LLMTimeout returns the per-request LLM timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// UsesEnricher reports whether name appears in the configured chain.
func (c *Config) UsesEnricher(name string) bool {
	for _, candidate := range c.Pipeline.Enrichers {
		if candidate == name {
			return true
		}
	}
	return false
}

// NeedsLLM reports whether any configured enricher calls a language model.
func (c *Config) NeedsLLM() bool {
	return c.UsesEnricher(EnricherTranslation) || c.UsesEnricher(EnricherAnnotation)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML. API keys are masked.
func (c *Config) Encode() (string, error) {
	redacted := *c
	redacted.LLM.APIKey = mask(redacted.LLM.APIKey)
	redacted.Transcription.OpenAIAPIKey = mask(redacted.Transcription.OpenAIAPIKey)
	redacted.Cache.RedisPassword = mask(redacted.Cache.RedisPassword)
	data, err := toml.Marshal(redacted)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
