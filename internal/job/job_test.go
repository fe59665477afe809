package job_test

import (
	"errors"
	"testing"
	"time"

	"scribe/internal/events"
	"scribe/internal/job"
	"scribe/internal/transcript"
)

func kinds(evts []events.Event) []events.Kind {
	out := make([]events.Kind, len(evts))
	for i, e := range evts {
		out[i] = e.Kind()
	}
	return out
}

func equalKinds(a, b []events.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHappyPathLifecycle(t *testing.T) {
	j := job.New("/tmp/talk.m4a", "de")
	if j.Status != job.StatusCreated {
		t.Fatalf("new job status = %s", j.Status)
	}

	mustOK(t, j.MarkIngested("/work/talk_normalized.wav"))
	mustOK(t, j.StartTranscribing())
	mustOK(t, j.RecordTranscribed(4, "de"))
	mustOK(t, j.StartDiarizing())
	mustOK(t, j.RecordSpeakers(2))
	mustOK(t, j.StartEnrichment("segmentation"))
	j.RecordStepTiming("segmentation", 5*time.Millisecond)
	mustOK(t, j.StartEnrichment("translation"))
	if j.Enricher != "translation" {
		t.Fatalf("enricher = %q", j.Enricher)
	}
	mustOK(t, j.Complete(transcript.NewAudioTranscript(nil, "en")))

	if j.Status != job.StatusCompleted || j.Result == nil || j.ErrorMessage != "" {
		t.Fatalf("completed job invariant broken: %+v", j)
	}

	want := []events.Kind{
		events.KindAudioIngested,
		events.KindSpeechTranscribed,
		events.KindSpeakersIdentified,
		events.KindEnrichmentStarted,
		events.KindPipelineStepTimed,
		events.KindEnrichmentStarted,
		events.KindJobCompleted,
	}
	got := kinds(j.PullEvents())
	if !equalKinds(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if rest := j.PullEvents(); len(rest) != 0 {
		t.Fatalf("PullEvents should drain the queue, got %d", len(rest))
	}
}

func TestCompleteWithoutEnrichers(t *testing.T) {
	j := job.New("a.wav", "en")
	mustOK(t, j.MarkIngested("a.wav"))
	mustOK(t, j.StartTranscribing())
	mustOK(t, j.StartDiarizing())
	mustOK(t, j.Complete(transcript.NewAudioTranscript(nil, "")))
}

func TestBackwardTransitionsRejected(t *testing.T) {
	j := job.New("a.wav", "en")
	if err := j.StartTranscribing(); !errors.Is(err, job.ErrInvalidTransition) {
		t.Fatalf("StartTranscribing before ingest: %v", err)
	}
	mustOK(t, j.MarkIngested("a.wav"))
	if err := j.MarkIngested("b.wav"); !errors.Is(err, job.ErrInvalidTransition) {
		t.Fatalf("second MarkIngested: %v", err)
	}
	mustOK(t, j.StartTranscribing())
	mustOK(t, j.StartDiarizing())
	if err := j.StartTranscribing(); !errors.Is(err, job.ErrInvalidTransition) {
		t.Fatalf("StartTranscribing after diarizing: %v", err)
	}
	if err := j.RecordTranscribed(1, "en"); !errors.Is(err, job.ErrInvalidTransition) {
		t.Fatalf("RecordTranscribed while diarizing: %v", err)
	}
}

func TestFailFromAnyNonTerminalState(t *testing.T) {
	steps := []func(*job.Job) error{
		func(*job.Job) error { return nil },
		func(j *job.Job) error { return j.MarkIngested("x.wav") },
		func(j *job.Job) error { return j.StartTranscribing() },
		func(j *job.Job) error { return j.StartDiarizing() },
		func(j *job.Job) error { return j.StartEnrichment("segmentation") },
	}
	for n := range steps {
		j := job.New("x.wav", "en")
		for _, step := range steps[:n+1] {
			mustOK(t, step(j))
		}
		j.PullEvents()
		mustOK(t, j.Fail("boom", "external_tool"))
		if j.Status != job.StatusFailed || j.Result != nil || j.ErrorMessage != "boom" || j.ErrorKind != "external_tool" {
			t.Fatalf("failed job invariant broken at step %d: %+v", n, j)
		}
		evts := j.PullEvents()
		if len(evts) != 1 {
			t.Fatalf("expected one JobFailed event, got %v", kinds(evts))
		}
		failed, ok := evts[0].(events.JobFailed)
		if !ok || failed.ErrorMessage != "boom" {
			t.Fatalf("unexpected event %#v", evts[0])
		}
	}
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	j := job.New("x.wav", "en")
	mustOK(t, j.Fail("", "unknown"))
	if j.ErrorMessage == "" {
		t.Fatal("failed job must carry a message")
	}
	if err := j.Fail("again", "unknown"); !errors.Is(err, job.ErrInvalidTransition) {
		t.Fatalf("Fail after Fail: %v", err)
	}
	if err := j.MarkIngested("x.wav"); !errors.Is(err, job.ErrInvalidTransition) {
		t.Fatalf("MarkIngested after Fail: %v", err)
	}
	if err := j.Complete(transcript.NewAudioTranscript(nil, "")); !errors.Is(err, job.ErrInvalidTransition) {
		t.Fatalf("Complete after Fail: %v", err)
	}
}

func TestEventsCarryJobIDAndOrigin(t *testing.T) {
	j := job.New("x.wav", "en")
	j.SetOrigin("ingestion")
	mustOK(t, j.MarkIngested("x.wav"))
	j.RecordStepTiming("ingestion", -time.Second)
	evts := j.PullEvents()
	for _, e := range evts {
		if e.JobID() != j.ID.String() || e.Origin() != "ingestion" {
			t.Fatalf("unexpected meta on %s: job=%s origin=%s", e.Kind(), e.JobID(), e.Origin())
		}
	}
	if timed := evts[1].(events.PipelineStepTimed); timed.Duration != 0 {
		t.Fatalf("negative durations should clamp to zero, got %s", timed.Duration)
	}
}
