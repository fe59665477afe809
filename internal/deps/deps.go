// Package deps reports whether the external programs and model files the
// configured backends rely on are present.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"scribe/internal/config"
	"scribe/internal/services/whisperx"
)

// Requirement defines an external dependency scribe relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configured backends execute.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{{
		Name:        "FFmpeg",
		Command:     cfg.Audio.FFmpegBinary,
		Description: "Normalizes source audio to 16 kHz mono WAV",
	}}
	switch cfg.Transcription.Backend {
	case config.TranscriptionWhisperCPP:
		reqs = append(reqs, Requirement{
			Name:        "whisper.cpp",
			Command:     cfg.Transcription.WhisperCPPBinary,
			Description: "Local speech-to-text",
		})
	case config.TranscriptionWhisperX:
		reqs = append(reqs, Requirement{
			Name:        "uvx",
			Command:     whisperx.UVXCommand,
			Description: "Runs WhisperX in an isolated environment",
		})
	}
	if cfg.Diarization.Backend == config.DiarizationRTTM {
		command := ""
		if fields := strings.Fields(cfg.Diarization.Command); len(fields) > 0 {
			command = fields[0]
		}
		reqs = append(reqs, Requirement{
			Name:        "Diarizer",
			Command:     command,
			Description: "Writes RTTM speaker turns",
		})
	}
	return reqs
}

// Check evaluates every binary and model file the configuration needs.
func Check(cfg *config.Config) []Status {
	results := CheckBinaries(Requirements(cfg))
	if cfg.Transcription.Backend == config.TranscriptionWhisperCPP {
		results = append(results, CheckFile("whisper.cpp model", cfg.Transcription.WhisperCPPModel, "GGML model weights"))
	}
	return results
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
