// Package whispercpp transcribes normalized audio with the whisper.cpp CLI.
// Raw sub-word tokens are kept as words (leading spaces included) so the
// token merger can rebuild whole words later in the chain.
package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scribe/internal/audio"
	langpkg "scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Defaults for whisper-cli invocation.
const (
	DefaultBinary  = "whisper-cli"
	DefaultThreads = 4
)

// Config captures the whisper-cli settings.
type Config struct {
	Binary  string
	Model   string
	Threads int
}

// Service runs whisper-cli.
type Service struct {
	cfg    Config
	runner services.CommandRunner
	logger *slog.Logger
}

// NewService returns a transcriber for cfg.
func NewService(cfg Config, logger *slog.Logger) *Service {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Threads <= 0 {
		cfg.Threads = DefaultThreads
	}
	return &Service{
		cfg:    cfg,
		runner: services.RunCommand,
		logger: logging.NewComponentLogger(logger, "whispercpp"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner services.CommandRunner) {
	if runner != nil {
		s.runner = runner
	}
}

// Transcribe runs whisper-cli with full JSON output and converts each
// segment into an utterance bounded by its tokens.
func (s *Service) Transcribe(ctx context.Context, artifact audio.Artifact, language string) ([]transcript.Utterance, error) {
	if strings.TrimSpace(s.cfg.Model) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "whisper-cli", "model path required", nil)
	}
	if _, err := os.Stat(s.cfg.Model); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "transcription", "whisper-cli", fmt.Sprintf("model %q not found", s.cfg.Model), err)
	}

	outputBase := strings.TrimSuffix(artifact.Path, filepath.Ext(artifact.Path))
	args := BuildArgs(s.cfg, artifact.Path, outputBase, language)
	logging.WithContext(ctx, s.logger).Debug("running whisper-cli",
		logging.String("command", s.cfg.Binary+" "+strings.Join(args, " ")))

	if err := s.runner(ctx, s.cfg.Binary, args...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "whisper-cli", "", err)
	}

	data, err := os.ReadFile(outputBase + ".json")
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "whisper-cli", "read output", err)
	}
	utterances, err := Parse(data)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "whisper-cli", "parse output", err)
	}
	return utterances, nil
}

// BuildArgs returns the whisper-cli arguments for one file.
func BuildArgs(cfg Config, input, outputBase, language string) []string {
	args := []string{
		"-m", cfg.Model,
		"-f", input,
	}
	if lang := langpkg.ToISO2(language); lang != "" {
		args = append(args, "-l", lang)
	}
	return append(args,
		"-ojf",
		"-of", outputBase,
		"-t", strconv.Itoa(cfg.Threads),
		"-sow",
	)
}

type offsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type token struct {
	Text    string   `json:"text"`
	Offsets *offsets `json:"offsets"`
	P       *float64 `json:"p"`
}

type segment struct {
	Text    string  `json:"text"`
	Offsets offsets `json:"offsets"`
	Tokens  []token `json:"tokens"`
}

type output struct {
	Transcription []segment `json:"transcription"`
}

// Parse converts whisper-cli full JSON into utterances. Control tokens such
// as "[_BEG_]" and segments left without tokens are dropped.
func Parse(data []byte) ([]transcript.Utterance, error) {
	var doc output
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode whisper json: %w", err)
	}
	utterances := make([]transcript.Utterance, 0, len(doc.Transcription))
	for i, seg := range doc.Transcription {
		words := make([]transcript.Word, 0, len(seg.Tokens))
		var start, end time.Duration
		for _, tok := range seg.Tokens {
			if tok.Text == "" || strings.HasPrefix(strings.TrimSpace(tok.Text), "[_") {
				continue
			}
			from, to := seg.Offsets.From, seg.Offsets.To
			if tok.Offsets != nil {
				from, to = tok.Offsets.From, tok.Offsets.To
			}
			if to < from {
				to = from
			}
			p := 1.0
			if tok.P != nil {
				p = min(max(*tok.P, 0), 1)
			}
			ts, err := transcript.NewTimestampRange(time.Duration(from)*time.Millisecond, time.Duration(to)*time.Millisecond)
			if err != nil {
				return nil, fmt.Errorf("segment %d token %q: %w", i, tok.Text, err)
			}
			word, err := transcript.NewWord(tok.Text, ts, p)
			if err != nil {
				return nil, fmt.Errorf("segment %d token %q: %w", i, tok.Text, err)
			}
			if len(words) == 0 {
				start, end = ts.Start(), ts.End()
			}
			start, end = min(start, ts.Start()), max(end, ts.End())
			words = append(words, word)
		}
		if len(words) == 0 {
			continue
		}
		u, err := transcript.NewUtterance(transcript.UtteranceParams{
			Timestamp:  transcript.MustRange(start, end),
			Text:       strings.TrimSpace(seg.Text),
			SpeakerID:  transcript.UnknownSpeaker,
			Confidence: 1,
			Words:      words,
		})
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		utterances = append(utterances, u)
	}
	return utterances, nil
}
