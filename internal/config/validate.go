package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateDiarization(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	seen := make(map[string]struct{}, len(c.Pipeline.Enrichers))
	for _, name := range c.Pipeline.Enrichers {
		switch name {
		case EnricherTokenMerger, EnricherSegmentation, EnricherTranslation, EnricherAnnotation:
		default:
			return fmt.Errorf("pipeline.enrichers: unknown enricher %q", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("pipeline.enrichers: %q listed more than once", name)
		}
		seen[name] = struct{}{}
	}
	if c.UsesEnricher(EnricherTranslation) && c.Translation.TargetLanguage == "" {
		return errors.New("translation.target_language must be set when the translation enricher is enabled")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Backend {
	case TranscriptionWhisperCPP, TranscriptionWhisperX:
	case TranscriptionOpenAI:
		if c.Transcription.OpenAIAPIKey == "" {
			return errors.New("transcription.openai_api_key is required for the openai backend (or set OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("transcription.backend: unsupported value %q", c.Transcription.Backend)
	}
	return nil
}

func (c *Config) validateDiarization() error {
	switch c.Diarization.Backend {
	case DiarizationNone:
	case DiarizationRTTM:
		if c.Diarization.Command == "" {
			return errors.New("diarization.command must be set when diarization.backend is rttm")
		}
		if !strings.Contains(c.Diarization.Command, "{audio}") || !strings.Contains(c.Diarization.Command, "{rttm}") {
			return errors.New("diarization.command must reference both {audio} and {rttm}")
		}
	default:
		return fmt.Errorf("diarization.backend: unsupported value %q", c.Diarization.Backend)
	}
	d := c.Diarization
	if d.NumSpeakers < 0 || d.MinSpeakers < 0 || d.MaxSpeakers < 0 {
		return errors.New("diarization speaker counts must not be negative")
	}
	if d.MinSpeakers > 0 && d.MaxSpeakers > 0 && d.MinSpeakers > d.MaxSpeakers {
		return errors.New("diarization.min_speakers must not exceed diarization.max_speakers")
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderOpenRouter, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("llm.provider: unsupported value %q", c.LLM.Provider)
	}
	if !c.NeedsLLM() {
		return nil
	}
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("llm.api_key is required for translation or annotation. Set SCRIBE_LLM_API_KEY or edit %s (create with 'scribe config init')", defaultPath)
	}
	if c.Retry.MaxDelaySeconds < c.Retry.BaseDelaySeconds {
		return errors.New("retry.max_delay_seconds must be at least retry.base_delay_seconds")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.RedisDB < 0 {
		return errors.New("cache.redis_db must not be negative")
	}
	return nil
}
