package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scribe/internal/job"
	"scribe/internal/services"
)

// JobRecord is the persisted summary of one job.
type JobRecord struct {
	ID             string
	SourcePath     string
	TargetLanguage string
	Status         job.Status
	ErrorMessage   string
	ErrorKind      string
	ResultPath     string
	UtteranceCount int
	CreatedAt      time.Time
	FinishedAt     time.Time
}

// Duration is the wall time between creation and the terminal status.
func (r JobRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.CreatedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.CreatedAt)
}

const jobColumns = "id, source_path, target_language, status, error_message, error_kind, result_path, utterance_count, created_at, finished_at"

// SaveJob inserts or replaces the summary row for j. resultPath is where the
// transcript was written, empty for failed jobs.
func (s *Store) SaveJob(ctx context.Context, j *job.Job, resultPath string) error {
	if j == nil {
		return services.Wrap(services.ErrValidation, "history", "save job", "job is nil", nil)
	}
	utterances := 0
	if j.Result != nil {
		utterances = j.Result.Len()
	}
	err := s.exec(ctx, `INSERT INTO jobs (`+jobColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            status = excluded.status,
            error_message = excluded.error_message,
            error_kind = excluded.error_kind,
            result_path = excluded.result_path,
            utterance_count = excluded.utterance_count,
            finished_at = excluded.finished_at`,
		j.ID.String(),
		j.SourcePath,
		j.TargetLanguage,
		string(j.Status),
		nullableString(j.ErrorMessage),
		nullableString(j.ErrorKind),
		nullableString(resultPath),
		utterances,
		formatTime(j.CreatedAt),
		formatTime(j.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", j.ID, err)
	}
	return nil
}

// GetJob loads one job. Unknown ids return an error matching services.ErrNotFound.
func (s *Store) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	record, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "history", "get job", fmt.Sprintf("no job %q", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return record, nil
}

// ListJobs returns the most recent jobs first. limit <= 0 returns all.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		record, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*JobRecord, error) {
	var (
		record                              JobRecord
		status                              string
		errorMessage, errorKind, resultPath sql.NullString
		createdAt, finishedAt               sql.NullString
	)
	if err := scanner.Scan(
		&record.ID,
		&record.SourcePath,
		&record.TargetLanguage,
		&status,
		&errorMessage,
		&errorKind,
		&resultPath,
		&record.UtteranceCount,
		&createdAt,
		&finishedAt,
	); err != nil {
		return nil, err
	}
	record.Status = job.Status(status)
	record.ErrorMessage = errorMessage.String
	record.ErrorKind = errorKind.String
	record.ResultPath = resultPath.String
	record.CreatedAt = parseTime(createdAt)
	record.FinishedAt = parseTime(finishedAt)
	return &record, nil
}

// FindJob resolves a full id or a unique id prefix, as printed by the CLI.
func (s *Store) FindJob(ctx context.Context, idOrPrefix string) (*JobRecord, error) {
	if idOrPrefix == "" {
		return nil, services.Wrap(services.ErrValidation, "history", "find job", "job id is empty", nil)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id LIKE ? || '%' LIMIT 2`, idOrPrefix)
	if err != nil {
		return nil, fmt.Errorf("find job %s: %w", idOrPrefix, err)
	}
	defer rows.Close()

	var matches []*JobRecord
	for rows.Next() {
		record, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		matches = append(matches, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, services.Wrap(services.ErrNotFound, "history", "find job", fmt.Sprintf("no job matches %q", idOrPrefix), nil)
	case 1:
		return matches[0], nil
	default:
		return nil, services.Wrap(services.ErrValidation, "history", "find job", fmt.Sprintf("%q matches more than one job", idOrPrefix), nil)
	}
}
