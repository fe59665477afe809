// Package diarize produces speaker turns for a normalized recording. Turns
// are utterances with an empty text and a speaker id; alignment maps them
// onto transcribed segments.
package diarize

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"scribe/internal/audio"
	"scribe/internal/fileutil"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Options constrains the speaker count. Zero means unset.
type Options struct {
	NumSpeakers int
	MinSpeakers int
	MaxSpeakers int
}

// Validate rejects negative counts and inverted bounds.
func (o Options) Validate() error {
	if o.NumSpeakers < 0 || o.MinSpeakers < 0 || o.MaxSpeakers < 0 {
		return services.Wrap(services.ErrValidation, "diarization", "options", "speaker counts must not be negative", nil)
	}
	if o.MinSpeakers > 0 && o.MaxSpeakers > 0 && o.MinSpeakers > o.MaxSpeakers {
		return services.Wrap(services.ErrValidation, "diarization", "options",
			fmt.Sprintf("min speakers %d exceeds max speakers %d", o.MinSpeakers, o.MaxSpeakers), nil)
	}
	return nil
}

// Args renders the options as command-line flags.
func (o Options) Args() []string {
	var args []string
	if o.NumSpeakers > 0 {
		args = append(args, "--num-speakers", strconv.Itoa(o.NumSpeakers))
	}
	if o.MinSpeakers > 0 {
		args = append(args, "--min-speakers", strconv.Itoa(o.MinSpeakers))
	}
	if o.MaxSpeakers > 0 {
		args = append(args, "--max-speakers", strconv.Itoa(o.MaxSpeakers))
	}
	return args
}

// Null reports no turns, leaving transcriber speakers in place.
type Null struct{}

func (Null) Diarize(context.Context, audio.Artifact, Options) ([]transcript.Utterance, error) {
	return nil, nil
}

// RTTM runs an external diarization command that writes an RTTM file.
// The command template is split on whitespace; {audio}, {rttm}, and
// {speakers} are substituted per field, with {speakers} expanding to zero or
// more flags.
type RTTM struct {
	template []string
	workDir  string
	runner   services.CommandRunner
	logger   *slog.Logger
}

// NewRTTM parses command and returns the diarizer.
func NewRTTM(command, workDir string, logger *slog.Logger) (*RTTM, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "diarization", "rttm", "command is empty", nil)
	}
	joined := strings.Join(fields, " ")
	if !strings.Contains(joined, "{audio}") || !strings.Contains(joined, "{rttm}") {
		return nil, services.Wrap(services.ErrConfiguration, "diarization", "rttm", "command must reference {audio} and {rttm}", nil)
	}
	return &RTTM{
		template: fields,
		workDir:  workDir,
		runner:   services.RunCommand,
		logger:   logging.NewComponentLogger(logger, "diarization"),
	}, nil
}

// WithCommandRunner sets a custom command runner (for testing).
func (r *RTTM) WithCommandRunner(runner services.CommandRunner) {
	if runner != nil {
		r.runner = runner
	}
}

// Diarize runs the command and parses its RTTM output.
func (r *RTTM) Diarize(ctx context.Context, artifact audio.Artifact, opts Options) ([]transcript.Utterance, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	dir := r.workDir
	if dir == "" {
		dir = filepath.Dir(artifact.Path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "diarization", "rttm", "create work directory", err)
	}
	rttmPath := filepath.Join(dir, fileutil.Stem(artifact.Path)+".rttm")

	argv := r.expand(artifact.Path, rttmPath, opts)
	logging.WithContext(ctx, r.logger).Debug("running diarization command", logging.String("command", strings.Join(argv, " ")))
	if err := r.runner(ctx, argv[0], argv[1:]...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "diarization", argv[0], "", err)
	}

	file, err := os.Open(rttmPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "diarization", "read rttm", "diarizer produced no RTTM output", err)
	}
	defer file.Close()
	turns, err := ParseRTTM(file)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "diarization", "parse rttm", "", err)
	}
	return turns, nil
}

func (r *RTTM) expand(audioPath, rttmPath string, opts Options) []string {
	argv := make([]string, 0, len(r.template)+6)
	for _, field := range r.template {
		if field == "{speakers}" {
			argv = append(argv, opts.Args()...)
			continue
		}
		field = strings.ReplaceAll(field, "{audio}", audioPath)
		field = strings.ReplaceAll(field, "{rttm}", rttmPath)
		argv = append(argv, field)
	}
	return argv
}

// ParseRTTM reads SPEAKER records into turns sorted by start time. Other
// record types and comments are ignored.
func ParseRTTM(r io.Reader) ([]transcript.Utterance, error) {
	var turns []transcript.Utterance
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") || fields[0] != "SPEAKER" {
			continue
		}
		if len(fields) < 8 {
			return nil, fmt.Errorf("rttm line %d: expected at least 8 fields, got %d", line, len(fields))
		}
		onset, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("rttm line %d: onset: %w", line, err)
		}
		dur, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("rttm line %d: duration: %w", line, err)
		}
		start := transcript.FromSeconds(onset)
		ts, err := transcript.NewTimestampRange(start, start+transcript.FromSeconds(dur))
		if err != nil {
			return nil, fmt.Errorf("rttm line %d: %w", line, err)
		}
		turn, err := transcript.NewUtterance(transcript.UtteranceParams{
			Timestamp:  ts,
			SpeakerID:  fields[7],
			Confidence: 1,
		})
		if err != nil {
			return nil, fmt.Errorf("rttm line %d: %w", line, err)
		}
		turns = append(turns, turn)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rttm: %w", err)
	}
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].Timestamp().Start() < turns[j].Timestamp().Start()
	})
	return turns, nil
}
