package openai

import (
	"context"
	"log/slog"
	"math"
	"strings"

	gogpt "github.com/sashabaranov/go-openai"

	"scribe/internal/audio"
	langpkg "scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// DefaultTranscriptionModel is the Whisper API model.
const DefaultTranscriptionModel = gogpt.Whisper1

// Transcriber uploads the artifact to the audio transcription endpoint and
// requests segment and word timestamps.
type Transcriber struct {
	client *gogpt.Client
	model  string
	logger *slog.Logger
}

// NewTranscriber constructs a Transcriber.
func NewTranscriber(cfg Config, logger *slog.Logger) (*Transcriber, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "openai", "api key required", nil)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultTranscriptionModel
	}
	return &Transcriber{
		client: newClient(cfg),
		model:  model,
		logger: logging.NewComponentLogger(logger, "openai-transcriber"),
	}, nil
}

// Transcribe returns one utterance per API segment with the words that fall
// inside it.
func (t *Transcriber) Transcribe(ctx context.Context, artifact audio.Artifact, language string) ([]transcript.Utterance, error) {
	logging.WithContext(ctx, t.logger).Info("uploading audio for transcription",
		logging.String("model", t.model),
		logging.String("file", artifact.Path),
	)
	resp, err := t.client.CreateTranscription(ctx, gogpt.AudioRequest{
		Model:    t.model,
		FilePath: artifact.Path,
		Language: langpkg.ToISO2(language),
		Format:   gogpt.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []gogpt.TranscriptionTimestampGranularity{
			gogpt.TranscriptionTimestampGranularityWord,
			gogpt.TranscriptionTimestampGranularitySegment,
		},
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "openai", "", mapError("create transcription", err))
	}

	segments := make([]Segment, len(resp.Segments))
	for i, s := range resp.Segments {
		segments[i] = Segment{Start: s.Start, End: s.End, Text: s.Text, AvgLogprob: s.AvgLogprob}
	}
	words := make([]TimedWord, len(resp.Words))
	for i, w := range resp.Words {
		words[i] = TimedWord{Word: w.Word, Start: w.Start, End: w.End}
	}
	utterances, err := Assemble(segments, words)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "openai", "convert response", err)
	}
	return utterances, nil
}

// Segment is the subset of a verbose_json segment scribe uses.
type Segment struct {
	Start, End float64
	Text       string
	AvgLogprob float64
}

// TimedWord is a verbose_json word.
type TimedWord struct {
	Word       string
	Start, End float64
}

// Assemble attaches each word to the segment containing its midpoint and
// widens segments to cover their words. Segment confidence is
// exp(avg_logprob); words inherit it since the API reports no per-word score.
func Assemble(segments []Segment, words []TimedWord) ([]transcript.Utterance, error) {
	out := make([]transcript.Utterance, 0, len(segments))
	next := 0
	for i, seg := range segments {
		confidence := min(max(math.Exp(seg.AvgLogprob), 0), 1)
		start, end := transcript.FromSeconds(seg.Start), transcript.FromSeconds(seg.End)
		if end < start {
			end = start
		}
		var segWords []transcript.Word
		for next < len(words) {
			w := words[next]
			mid := (w.Start + w.End) / 2
			if mid >= seg.End && i < len(segments)-1 {
				break
			}
			next++
			ws, we := transcript.FromSeconds(w.Start), transcript.FromSeconds(w.End)
			if we < ws {
				we = ws
			}
			ts, err := transcript.NewTimestampRange(ws, we)
			if err != nil {
				return nil, err
			}
			word, err := transcript.NewWord(w.Word, ts, confidence)
			if err != nil {
				return nil, err
			}
			start, end = min(start, ws), max(end, we)
			segWords = append(segWords, word)
		}
		ts, err := transcript.NewTimestampRange(start, end)
		if err != nil {
			return nil, err
		}
		u, err := transcript.NewUtterance(transcript.UtteranceParams{
			Timestamp:  ts,
			Text:       strings.TrimSpace(seg.Text),
			SpeakerID:  transcript.UnknownSpeaker,
			Confidence: confidence,
			Words:      segWords,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}
