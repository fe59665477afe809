package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"scribe/internal/events"
	"scribe/internal/logging"
)

// EventRecord is one persisted domain event.
type EventRecord struct {
	Seq        int64
	JobID      string
	Kind       events.Kind
	Origin     string
	OccurredAt time.Time
	Payload    json.RawMessage
}

// metaKeys are the payload fields already stored in dedicated columns.
var metaKeys = map[string]bool{"Job": true, "At": true, "Source": true}

// Details returns the variant-specific payload fields, sorted by name, with
// the shared metadata removed.
func (r EventRecord) Details() []Detail {
	var fields map[string]any
	if err := json.Unmarshal(r.Payload, &fields); err != nil {
		return nil
	}
	details := make([]Detail, 0, len(fields))
	for key, value := range fields {
		if metaKeys[key] {
			continue
		}
		if key == "Duration" && r.Kind == events.KindPipelineStepTimed {
			if ns, ok := value.(float64); ok {
				value = events.FormatDuration(time.Duration(ns))
			}
		}
		details = append(details, Detail{Key: key, Value: fmt.Sprint(value)})
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Key < details[j].Key })
	return details
}

// Detail is a single rendered payload field.
type Detail struct {
	Key   string
	Value string
}

// AppendEvent stores e.
func (s *Store) AppendEvent(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Kind(), err)
	}
	err = s.exec(ctx, `INSERT INTO job_events (job_id, kind, origin, occurred_at, payload) VALUES (?, ?, ?, ?, ?)`,
		e.JobID(), string(e.Kind()), e.Origin(), formatTime(e.OccurredAt()), string(payload))
	if err != nil {
		return fmt.Errorf("append %s event: %w", e.Kind(), err)
	}
	return nil
}

// Events returns the events of one job in publication order.
func (s *Store) Events(ctx context.Context, jobID string) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, kind, origin, occurred_at, payload FROM job_events WHERE job_id = ? ORDER BY id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var (
			record     EventRecord
			kind       string
			occurredAt sql.NullString
			payload    string
		)
		if err := rows.Scan(&record.Seq, &record.JobID, &kind, &record.Origin, &occurredAt, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		record.Kind = events.Kind(kind)
		record.OccurredAt = parseTime(occurredAt)
		record.Payload = json.RawMessage(payload)
		records = append(records, record)
	}
	return records, rows.Err()
}

// Recorder persists every event published on a bus. Write failures are
// logged and counted; they never interrupt the job.
type Recorder struct {
	ctx    context.Context
	store  *Store
	logger *slog.Logger

	mu       sync.Mutex
	failures int
}

// NewRecorder binds a recorder to store. ctx bounds every write.
func NewRecorder(ctx context.Context, store *Store, logger *slog.Logger) *Recorder {
	return &Recorder{
		ctx:    ctx,
		store:  store,
		logger: logging.NewComponentLogger(logger, "history"),
	}
}

// Register subscribes the recorder to every event kind.
func (r *Recorder) Register(bus *events.Bus) {
	bus.SubscribeAll(r.Handle)
}

// Handle writes one event.
func (r *Recorder) Handle(e events.Event) {
	if err := r.store.AppendEvent(r.ctx, e); err != nil {
		r.mu.Lock()
		r.failures++
		r.mu.Unlock()
		logging.WarnWithContext(r.logger, "history write failed", "history_write_failed",
			logging.String(logging.FieldJobID, e.JobID()),
			logging.String("kind", string(e.Kind())),
			logging.String(logging.FieldImpact, "job history will be incomplete"),
			logging.Error(err))
	}
}

// Failures reports how many events could not be written.
func (r *Recorder) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}
