// Package alignment attributes transcribed segments to diarized speakers.
package alignment

import (
	"time"

	"scribe/internal/transcript"
)

// Aligner assigns speaker ids to transcribed segments using diarized turns.
type Aligner interface {
	Align(segments, turns []transcript.Utterance) []transcript.Utterance
}

// MaxOverlap gives each segment the speaker of the turn it overlaps longest.
// Ties keep the earliest turn; segments overlapping no turn become
// transcript.UnknownSpeaker. With no turns the segments are returned as is.
type MaxOverlap struct{}

func (MaxOverlap) Align(segments, turns []transcript.Utterance) []transcript.Utterance {
	out := make([]transcript.Utterance, len(segments))
	if len(turns) == 0 {
		copy(out, segments)
		return out
	}
	for i, seg := range segments {
		speaker := transcript.UnknownSpeaker
		var best time.Duration
		for _, turn := range turns {
			if overlap := seg.Timestamp().Overlap(turn.Timestamp()); overlap > best {
				best = overlap
				speaker = turn.SpeakerID()
			}
		}
		out[i] = seg.WithSpeaker(speaker)
	}
	return out
}
