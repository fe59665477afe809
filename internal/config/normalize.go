package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	c.normalizeDiarization()
	c.normalizeEnrichers()
	c.normalizeLLM()
	c.normalizeRetry()
	c.normalizeCache()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizePipeline() {
	c.Pipeline.Language = strings.TrimSpace(c.Pipeline.Language)
	enrichers := make([]string, 0, len(c.Pipeline.Enrichers))
	for _, name := range c.Pipeline.Enrichers {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			enrichers = append(enrichers, name)
		}
	}
	c.Pipeline.Enrichers = enrichers
}

func (c *Config) normalizeTranscription() error {
	c.Transcription.Backend = strings.ToLower(strings.TrimSpace(c.Transcription.Backend))
	if c.Transcription.Backend == "" {
		c.Transcription.Backend = TranscriptionWhisperCPP
	}
	if strings.TrimSpace(c.Audio.FFmpegBinary) == "" {
		c.Audio.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = defaultSampleRate
	}
	if strings.TrimSpace(c.Transcription.WhisperCPPBinary) == "" {
		c.Transcription.WhisperCPPBinary = defaultWhisperCPPBinary
	}
	if strings.TrimSpace(c.Transcription.WhisperCPPModel) == "" {
		c.Transcription.WhisperCPPModel = defaultWhisperCPPModel
	}
	var err error
	if c.Transcription.WhisperCPPModel, err = expandPath(c.Transcription.WhisperCPPModel); err != nil {
		return fmt.Errorf("transcription.whisper_cpp_model: %w", err)
	}
	if c.Transcription.Threads <= 0 {
		c.Transcription.Threads = defaultWhisperThreads
	}
	if strings.TrimSpace(c.Transcription.WhisperXModel) == "" {
		c.Transcription.WhisperXModel = defaultWhisperXModel
	}
	if strings.TrimSpace(c.Transcription.OpenAIModel) == "" {
		c.Transcription.OpenAIModel = defaultOpenAITranscribeModel
	}
	c.Transcription.OpenAIAPIKey = strings.TrimSpace(c.Transcription.OpenAIAPIKey)
	if c.Transcription.OpenAIAPIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Transcription.OpenAIAPIKey = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeDiarization() {
	c.Diarization.Backend = strings.ToLower(strings.TrimSpace(c.Diarization.Backend))
	if c.Diarization.Backend == "" {
		c.Diarization.Backend = DiarizationNone
	}
	c.Diarization.Command = strings.TrimSpace(c.Diarization.Command)
}

func (c *Config) normalizeEnrichers() {
	if c.Segmentation.MaxDurationSeconds <= 0 {
		c.Segmentation.MaxDurationSeconds = defaultSegmentMaxSeconds
	}
	c.Translation.TargetLanguage = strings.TrimSpace(c.Translation.TargetLanguage)
	if c.Translation.BatchSize <= 0 {
		c.Translation.BatchSize = defaultTranslationBatch
	}
	if c.Translation.ContextSize < 0 {
		c.Translation.ContextSize = 0
	}
	if c.Annotation.BatchSize <= 0 {
		c.Annotation.BatchSize = defaultAnnotationBatch
	}
	if c.Annotation.ContextSize < 0 {
		c.Annotation.ContextSize = 0
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenRouter
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	switch {
	case c.LLM.BaseURL == "" && c.LLM.Provider == ProviderOpenRouter:
		c.LLM.BaseURL = defaultLLMBaseURL
	case c.LLM.BaseURL == defaultLLMBaseURL && c.LLM.Provider != ProviderOpenRouter:
		// the SDK clients supply their own endpoints
		c.LLM.BaseURL = ""
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" || (c.LLM.Model == defaultLLMModel && c.LLM.Provider != ProviderOpenRouter) {
		switch c.LLM.Provider {
		case ProviderOpenAI:
			c.LLM.Model = defaultOpenAIChatModel
		case ProviderAnthropic:
			c.LLM.Model = defaultAnthropicModel
		default:
			c.LLM.Model = defaultLLMModel
		}
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey != "" {
		return
	}
	envKeys := []string{"SCRIBE_LLM_API_KEY"}
	switch c.LLM.Provider {
	case ProviderOpenAI:
		envKeys = append(envKeys, "OPENAI_API_KEY")
	case ProviderAnthropic:
		envKeys = append(envKeys, "ANTHROPIC_API_KEY")
	default:
		envKeys = append(envKeys, "OPENROUTER_API_KEY")
	}
	for _, key := range envKeys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			c.LLM.APIKey = strings.TrimSpace(value)
			return
		}
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = defaultRetryAttempts
	}
	if c.Retry.BaseDelaySeconds < 0 {
		c.Retry.BaseDelaySeconds = 0
	}
	if c.Retry.MaxDelaySeconds <= 0 {
		c.Retry.MaxDelaySeconds = defaultRetryMaxSeconds
	}
}

func (c *Config) normalizeCache() {
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	if c.Cache.RedisPassword == "" {
		if value, ok := os.LookupEnv("SCRIBE_REDIS_PASSWORD"); ok {
			c.Cache.RedisPassword = value
		}
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = defaultCacheTTLHours
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
