package config

// Backend and enricher names accepted in configuration.
const (
	TranscriptionWhisperCPP = "whisper_cpp"
	TranscriptionWhisperX   = "whisperx"
	TranscriptionOpenAI     = "openai"

	DiarizationNone = "none"
	DiarizationRTTM = "rttm"

	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"

	EnricherTokenMerger  = "token_merger"
	EnricherSegmentation = "segmentation"
	EnricherTranslation  = "translation"
	EnricherAnnotation   = "annotation"
)

const (
	defaultConfigPath            = "~/.config/scribe/config.toml"
	defaultWorkDir               = "~/.local/share/scribe/work"
	defaultOutputDir             = "~/scribe"
	defaultLogDir                = "~/.local/share/scribe/logs"
	defaultStateDir              = "~/.local/share/scribe"
	defaultFFmpegBinary          = "ffmpeg"
	defaultSampleRate            = 16000
	defaultWhisperCPPBinary      = "whisper-cli"
	defaultWhisperCPPModel       = "~/.local/share/scribe/models/ggml-large-v3.bin"
	defaultWhisperThreads        = 4
	defaultWhisperXModel         = "large-v3-turbo"
	defaultOpenAITranscribeModel = "whisper-1"
	defaultSegmentMaxSeconds     = 15.0
	defaultTranslationBatch      = 10
	defaultTranslationContext    = 0
	defaultAnnotationBatch       = 1
	defaultAnnotationContext     = 10
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultOpenAIChatModel       = "gpt-4o-mini"
	defaultAnthropicModel        = "claude-sonnet-4-5"
	defaultLLMReferer            = "https://github.com/scribe-audio/scribe"
	defaultLLMTitle              = "Scribe Transcript Enrichment"
	defaultLLMTimeoutSeconds     = 120
	defaultRetryAttempts         = 3
	defaultRetryBaseSeconds      = 65.0
	defaultRetryMaxSeconds       = 600.0
	defaultCacheTTLHours         = 24 * 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Pipeline: Pipeline{
			Enrichers: []string{EnricherSegmentation, EnricherTokenMerger},
		},
		Audio: Audio{
			FFmpegBinary: defaultFFmpegBinary,
			SampleRate:   defaultSampleRate,
		},
		Transcription: Transcription{
			Backend:          TranscriptionWhisperCPP,
			WhisperCPPBinary: defaultWhisperCPPBinary,
			WhisperCPPModel:  defaultWhisperCPPModel,
			Threads:          defaultWhisperThreads,
			WhisperXModel:    defaultWhisperXModel,
			OpenAIModel:      defaultOpenAITranscribeModel,
		},
		Diarization: Diarization{
			Backend: DiarizationNone,
		},
		Segmentation: Segmentation{
			MaxDurationSeconds: defaultSegmentMaxSeconds,
		},
		Translation: Translation{
			BatchSize:   defaultTranslationBatch,
			ContextSize: defaultTranslationContext,
		},
		Annotation: Annotation{
			BatchSize:   defaultAnnotationBatch,
			ContextSize: defaultAnnotationContext,
		},
		LLM: LLM{
			Provider:       ProviderOpenRouter,
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Retry: Retry{
			MaxAttempts:      defaultRetryAttempts,
			BaseDelaySeconds: defaultRetryBaseSeconds,
			MaxDelaySeconds:  defaultRetryMaxSeconds,
		},
		Cache: Cache{
			TTLHours: defaultCacheTTLHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
