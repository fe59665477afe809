package events

import (
	"fmt"
	"log/slog"
	"time"

	"scribe/internal/logging"
)

// LogHandler writes one structured log line per event.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler returns a handler logging through logger.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	return &LogHandler{logger: logging.NewComponentLogger(logger, "events")}
}

// Register subscribes the handler to every event kind on bus.
func (h *LogHandler) Register(bus *Bus) {
	bus.SubscribeAll(h.Handle)
}

// Handle logs e. Failures log at error level; everything else at info.
func (h *LogHandler) Handle(e Event) {
	attrs := []logging.Attr{
		logging.String(logging.FieldJobID, e.JobID()),
		logging.String(logging.FieldEventType, string(e.Kind())),
		logging.String("origin", e.Origin()),
	}
	tag := fmt.Sprintf("[%s|%s]", logging.ShortID(e.JobID()), e.Origin())

	switch ev := e.(type) {
	case AudioIngested:
		h.logger.Info(tag+" audio ingested", logging.Args(append(attrs,
			logging.String("source", ev.SourcePath),
			logging.String("artifact", ev.ArtifactPath))...)...)
	case SpeechTranscribed:
		h.logger.Info(tag+" speech transcribed", logging.Args(append(attrs,
			logging.Int("utterances", ev.UtteranceCount),
			logging.String("language", ev.Language))...)...)
	case SpeakersIdentified:
		h.logger.Info(tag+" speakers identified", logging.Args(append(attrs,
			logging.Int("speakers", ev.SpeakerCount))...)...)
	case EnrichmentStarted:
		h.logger.Info(tag+" enrichment started", logging.Args(append(attrs,
			logging.String("enricher", ev.EnricherName))...)...)
	case PipelineStepTimed:
		h.logger.Info(tag+" step finished", logging.Args(append(attrs,
			logging.String("step", ev.StepName),
			logging.String("took", FormatDuration(ev.Duration)))...)...)
	case JobCompleted:
		h.logger.Info(tag+" job completed", logging.Args(append(attrs,
			logging.Int("utterances", ev.UtteranceCount))...)...)
	case JobFailed:
		logging.ErrorWithContext(h.logger, tag+" job failed", "job_failed", append(attrs,
			logging.String("error", ev.ErrorMessage),
			logging.String(logging.FieldErrorKind, ev.ErrorKind),
			logging.String(logging.FieldErrorHint, "inspect the stage named in the error and rerun"))...)
	default:
		h.logger.Info(tag+" event", logging.Args(attrs...)...)
	}
}

// FormatDuration renders d as "1h 2m 3s", "2m 3s", "3.045s", or "45ms",
// using the coarsest unit present.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int64(d / time.Hour)
	minutes := int64(d%time.Hour) / int64(time.Minute)
	secs := int64(d%time.Minute) / int64(time.Second)
	millis := int64(d%time.Second) / int64(time.Millisecond)
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	case secs > 0:
		return fmt.Sprintf("%d.%03ds", secs, millis)
	default:
		return fmt.Sprintf("%dms", millis)
	}
}
