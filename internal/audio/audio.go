// Package audio converts arbitrary input recordings into the mono 16 kHz
// PCM WAV artifact every transcription and diarization backend expects.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"scribe/internal/fileutil"
	"scribe/internal/logging"
	"scribe/internal/services"
)

// Defaults for the normalized artifact.
const (
	DefaultSampleRate = 16000
	FormatWAV         = "wav"
	FFmpegCommand     = "ffmpeg"
)

// Artifact is a normalized audio file ready for transcription.
type Artifact struct {
	Path       string
	Format     string
	SampleRate int
}

// FFmpeg normalizes audio by shelling out to ffmpeg.
type FFmpeg struct {
	binary     string
	workDir    string
	sampleRate int
	runner     services.CommandRunner
	logger     *slog.Logger
}

// NewFFmpeg returns a normalizer writing artifacts into workDir. An empty
// workDir places the artifact next to its source.
func NewFFmpeg(binary, workDir string, sampleRate int, logger *slog.Logger) *FFmpeg {
	if strings.TrimSpace(binary) == "" {
		binary = FFmpegCommand
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &FFmpeg{
		binary:     binary,
		workDir:    workDir,
		sampleRate: sampleRate,
		runner:     services.RunCommand,
		logger:     logging.NewComponentLogger(logger, "audio"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (f *FFmpeg) WithCommandRunner(runner services.CommandRunner) {
	if runner != nil {
		f.runner = runner
	}
}

// Normalize converts source into <stem>_normalized.wav.
func (f *FFmpeg) Normalize(ctx context.Context, source string) (Artifact, error) {
	if !fileutil.FileExists(source) {
		return Artifact{}, services.Wrap(services.ErrNotFound, "ingestion", "normalize", fmt.Sprintf("source %q does not exist", source), nil)
	}
	dir := f.workDir
	if dir == "" {
		dir = filepath.Dir(source)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, services.Wrap(services.ErrConfiguration, "ingestion", "normalize", "create work directory", err)
	}
	dest := filepath.Join(dir, fileutil.Stem(source)+"_normalized.wav")

	logger := logging.WithContext(ctx, f.logger)
	logger.Debug("normalizing audio", logging.String("source", source), logging.String("dest", dest))

	if err := f.runner(ctx, f.binary, BuildNormalizeArgs(source, dest, f.sampleRate)...); err != nil {
		return Artifact{}, services.Wrap(services.ErrExternalTool, "ingestion", "ffmpeg normalize", "", err)
	}
	info, err := os.Stat(dest)
	if err != nil || info.IsDir() {
		return Artifact{}, services.Wrap(services.ErrExternalTool, "ingestion", "ffmpeg normalize", "ffmpeg produced no output", nil)
	}
	logger.Info("audio normalized",
		logging.String("dest", dest),
		logging.Int64("bytes", info.Size()),
		logging.Int("sample_rate", f.sampleRate),
	)
	return Artifact{Path: dest, Format: FormatWAV, SampleRate: f.sampleRate}, nil
}

// BuildNormalizeArgs returns the ffmpeg arguments for a mono PCM conversion.
func BuildNormalizeArgs(source, dest string, sampleRate int) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"-c:a", "pcm_s16le",
		dest,
	}
}
