package main

import (
	"context"
	"fmt"
	"log/slog"

	"scribe/internal/audio"
	"scribe/internal/cache"
	"scribe/internal/config"
	"scribe/internal/diarize"
	"scribe/internal/enrich"
	"scribe/internal/logging"
	"scribe/internal/pipeline"
	"scribe/internal/retry"
	anthropicsvc "scribe/internal/services/anthropic"
	"scribe/internal/services/llm"
	openaisvc "scribe/internal/services/openai"
	"scribe/internal/services/whispercpp"
	"scribe/internal/services/whisperx"
)

// stack holds the collaborators one run needs.
type stack struct {
	normalizer  pipeline.AudioNormalizer
	transcriber pipeline.Transcriber
	diarizer    pipeline.Diarizer
	enrichers   []enrich.Enricher
	closers     []func() error
}

func (s *stack) Close() {
	for _, closeFn := range s.closers {
		_ = closeFn()
	}
}

type stackFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stack, error)

func buildStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stack, error) {
	s := &stack{
		normalizer: audio.NewFFmpeg(cfg.Audio.FFmpegBinary, cfg.Paths.WorkDir, cfg.Audio.SampleRate, logger),
	}

	transcriber, err := newTranscriber(cfg, logger)
	if err != nil {
		return nil, err
	}
	s.transcriber = transcriber

	diarizer, err := newDiarizer(cfg, logger)
	if err != nil {
		return nil, err
	}
	s.diarizer = diarizer

	llmDeps := &llmDeps{ctx: ctx, cfg: cfg, logger: logger, stack: s}
	builders := map[string]enrich.Builder{
		enrich.NameTokenMerger: func() (enrich.Enricher, error) {
			return enrich.TokenMerger{}, nil
		},
		enrich.NameSegmentation: func() (enrich.Enricher, error) {
			return enrich.NewSegmenter(cfg.SegmentMaxDuration(), logger), nil
		},
		enrich.NameTranslation: func() (enrich.Enricher, error) {
			translator, err := llmDeps.translator()
			if err != nil {
				return nil, err
			}
			return enrich.NewTranslation(translator, cfg.Translation.TargetLanguage,
				cfg.Translation.BatchSize, cfg.Translation.ContextSize, logger), nil
		},
		enrich.NameAnnotation: func() (enrich.Enricher, error) {
			completer, err := llmDeps.completer()
			if err != nil {
				return nil, err
			}
			annotator := llm.NewAnnotator(completer, retryPolicy(cfg), logger)
			return enrich.NewAnnotation(annotator, cfg.Annotation.BatchSize, cfg.Annotation.ContextSize, logger), nil
		},
	}
	chain, err := enrich.NewChain(cfg.Pipeline.Enrichers, builders)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.enrichers = chain
	return s, nil
}

func newTranscriber(cfg *config.Config, logger *slog.Logger) (pipeline.Transcriber, error) {
	switch cfg.Transcription.Backend {
	case config.TranscriptionWhisperX:
		return whisperx.NewService(whisperx.Config{
			Model:       cfg.Transcription.WhisperXModel,
			CUDAEnabled: cfg.Transcription.WhisperXCUDA,
			OutputDir:   cfg.Paths.WorkDir,
		}, logger), nil
	case config.TranscriptionOpenAI:
		return openaisvc.NewTranscriber(openaisvc.Config{
			APIKey: cfg.Transcription.OpenAIAPIKey,
			Model:  cfg.Transcription.OpenAIModel,
		}, logger)
	case config.TranscriptionWhisperCPP:
		return whispercpp.NewService(whispercpp.Config{
			Binary:  cfg.Transcription.WhisperCPPBinary,
			Model:   cfg.Transcription.WhisperCPPModel,
			Threads: cfg.Transcription.Threads,
		}, logger), nil
	default:
		return nil, fmt.Errorf("transcription.backend: unsupported value %q", cfg.Transcription.Backend)
	}
}

func newDiarizer(cfg *config.Config, logger *slog.Logger) (pipeline.Diarizer, error) {
	switch cfg.Diarization.Backend {
	case config.DiarizationRTTM:
		return diarize.NewRTTM(cfg.Diarization.Command, cfg.Paths.WorkDir, logger)
	case config.DiarizationNone:
		return diarize.Null{}, nil
	default:
		return nil, fmt.Errorf("diarization.backend: unsupported value %q", cfg.Diarization.Backend)
	}
}

func retryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay(),
		MaxDelay:    cfg.RetryMaxDelay(),
	}
}

// llmDeps lazily builds the completer shared by translation and annotation.
type llmDeps struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
	stack  *stack

	built    llm.Completer
	buildErr error
	once     bool
}

func (d *llmDeps) completer() (llm.Completer, error) {
	if !d.once {
		d.once = true
		d.built, d.buildErr = newCompleter(d.cfg)
	}
	return d.built, d.buildErr
}

func (d *llmDeps) translator() (enrich.Translator, error) {
	completer, err := d.completer()
	if err != nil {
		return nil, err
	}
	var translator enrich.Translator = llm.NewTranslator(completer, retryPolicy(d.cfg), d.logger)
	if d.cfg.Cache.RedisAddr == "" {
		return translator, nil
	}
	store, err := cache.NewRedisStore(d.ctx, cache.RedisOptions{
		Addr:     d.cfg.Cache.RedisAddr,
		Password: d.cfg.Cache.RedisPassword,
		DB:       d.cfg.Cache.RedisDB,
	})
	if err != nil {
		logging.WarnWithContext(d.logger, "translation cache unavailable", "cache_unavailable",
			logging.String("redis_addr", d.cfg.Cache.RedisAddr),
			logging.String(logging.FieldImpact, "translations are requested without caching"),
			logging.Error(err))
		return translator, nil
	}
	d.stack.closers = append(d.stack.closers, store.Close)
	return cache.NewTranslator(translator, store, d.cfg.CacheTTL(), d.logger), nil
}

// newCompleter selects the chat backend for llm.provider.
func newCompleter(cfg *config.Config) (llm.Completer, error) {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return openaisvc.NewCompleter(openaisvc.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLMTimeout(),
		})
	case config.ProviderAnthropic:
		return anthropicsvc.NewCompleter(anthropicsvc.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLMTimeout(),
		})
	case config.ProviderOpenRouter:
		return llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}), nil
	default:
		return nil, fmt.Errorf("llm.provider: unsupported value %q", cfg.LLM.Provider)
	}
}
