package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/audio"
	"scribe/internal/fileutil"
	langpkg "scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// EnvRunner runs a command with extra environment variables.
type EnvRunner func(ctx context.Context, env []string, name string, args ...string) error

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg    Config
	runner EnvRunner
	logger *slog.Logger
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		runner: services.RunCommandEnv,
		logger: logging.NewComponentLogger(logger, "whisperx"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner EnvRunner) {
	if runner != nil {
		s.runner = runner
	}
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// CUDAEnabled returns whether CUDA is enabled.
func (s *Service) CUDAEnabled() bool {
	return s.cfg.CUDAEnabled
}

// Transcribe runs WhisperX on the artifact and returns one utterance per
// sentence segment.
func (s *Service) Transcribe(ctx context.Context, artifact audio.Artifact, language string) ([]transcript.Utterance, error) {
	if strings.TrimSpace(artifact.Path) == "" {
		return nil, services.Wrap(services.ErrValidation, "transcription", "whisperx", "artifact path required", nil)
	}
	outputDir := s.cfg.OutputDir
	if outputDir == "" {
		outputDir = filepath.Dir(artifact.Path)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "whisperx", "ensure output dir", err)
	}

	args := s.buildArgs(artifact.Path, outputDir, language)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("running whisperx",
		logging.String("model", s.Model()),
		logging.Bool("cuda", s.cfg.CUDAEnabled),
		logging.String("language", langpkg.ToISO2(language)),
	)

	var env []string
	// Torch 2.6 changed torch.load to weights_only=true, which breaks the
	// pyannote checkpoints WhisperX loads.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		env = append(env, "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if err := s.runner(ctx, env, UVXCommand, args...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "whisperx", "", err)
	}

	jsonPath := filepath.Join(outputDir, fileutil.Stem(artifact.Path)+".json")
	segments, err := LoadSegments(jsonPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "whisperx", "read output", err)
	}
	utterances, err := ToUtterances(segments)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "whisperx", "convert output", err)
	}
	logger.Debug("whisperx output loaded", logging.Int("segments", len(utterances)))
	return utterances, nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(source, outputDir, language string) []string {
	args := make([]string, 0, 40)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", s.Model(),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
		"--best_of", BestOf,
		"--temperature", Temperature,
		"--patience", Patience,
	)

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if lang := langpkg.ToISO2(language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// Word represents a single word with timing from WhisperX output. Numerals
// and symbols can come back without timing.
type Word struct {
	Word  string   `json:"word"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Score *float64 `json:"score"`
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Words   []Word  `json:"words"`
}

type whisperXPayload struct {
	Segments []Segment `json:"segments"`
}

// LoadSegments loads segments from a WhisperX JSON file.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload.Segments, nil
}

// ToUtterances converts segments in order. Untimed words are dropped, and a
// segment's range is widened to cover its words. Confidence is the mean
// word score, or 1 when no word carries one.
func ToUtterances(segments []Segment) ([]transcript.Utterance, error) {
	out := make([]transcript.Utterance, 0, len(segments))
	for i, seg := range segments {
		start, end := transcript.FromSeconds(seg.Start), transcript.FromSeconds(seg.End)
		words := make([]transcript.Word, 0, len(seg.Words))
		var scoreSum float64
		scored := 0
		for _, w := range seg.Words {
			if w.Start == nil || w.End == nil {
				continue
			}
			score := 1.0
			if w.Score != nil {
				score = min(max(*w.Score, 0), 1)
				scoreSum += score
				scored++
			}
			ws, we := transcript.FromSeconds(*w.Start), transcript.FromSeconds(*w.End)
			if we < ws {
				we = ws
			}
			ts, err := transcript.NewTimestampRange(ws, we)
			if err != nil {
				return nil, fmt.Errorf("segment %d word %q: %w", i, w.Word, err)
			}
			word, err := transcript.NewWord(w.Word, ts, score)
			if err != nil {
				return nil, fmt.Errorf("segment %d word %q: %w", i, w.Word, err)
			}
			start, end = min(start, ws), max(end, we)
			words = append(words, word)
		}
		ts, err := transcript.NewTimestampRange(start, end)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		confidence := 1.0
		if scored > 0 {
			confidence = scoreSum / float64(scored)
		}
		speaker := strings.TrimSpace(seg.Speaker)
		if speaker == "" {
			speaker = transcript.UnknownSpeaker
		}
		u, err := transcript.NewUtterance(transcript.UtteranceParams{
			Timestamp:  ts,
			Text:       strings.TrimSpace(seg.Text),
			SpeakerID:  speaker,
			Confidence: confidence,
			Words:      words,
		})
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		out = append(out, u)
	}
	return out, nil
}
