package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/logsentry/logsentry/internal/core"
)

// RunRecord is one persisted pipeline run.
type RunRecord struct {
	ID        string
	StartedAt time.Time
	Outcome   string
	Severity  string
	Reason    string
	Summary   string
	Details   map[string]string
	Notified  bool
}

// NewRunRecord flattens a run outcome for storage.
func NewRunRecord(id string, startedAt time.Time, outcome *core.RunOutcome, notified bool) RunRecord {
	rec := RunRecord{
		ID:        id,
		StartedAt: startedAt.UTC(),
		Outcome:   outcome.Kind.String(),
		Notified:  notified,
	}

	switch outcome.Kind {
	case core.OutcomeVerdict:
		if outcome.Verdict != nil {
			rec.Severity = outcome.Verdict.Severity.String()
			rec.Summary = outcome.Verdict.Summary
			rec.Details = outcome.Verdict.Details
		}
	case core.OutcomeRateLimited:
		rec.Reason = string(outcome.Reason)
	case core.OutcomeFailed:
		if outcome.Err != nil {
			rec.Summary = outcome.Err.Error()
		}
	}

	return rec
}

// RecordRun persists one run.
func (s *Store) RecordRun(ctx context.Context, rec RunRecord) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var details sql.NullString
	if len(rec.Details) > 0 {
		encoded, err := json.Marshal(rec.Details)
		if err != nil {
			return fmt.Errorf("encode run details: %w", err)
		}
		details = sql.NullString{String: string(encoded), Valid: true}
	}

	notified := 0
	if rec.Notified {
		notified = 1
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, outcome, severity, reason, summary, details, notified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.StartedAt.UTC().Unix(), rec.Outcome, rec.Severity, rec.Reason, rec.Summary, details, notified)
	if err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, started_at, outcome, severity, reason, summary, details, notified
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch runs: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var records []RunRecord
	for rows.Next() {
		var (
			rec       RunRecord
			startedAt int64
			severity  sql.NullString
			reason    sql.NullString
			summary   sql.NullString
			details   sql.NullString
			notified  int
		)
		if err := rows.Scan(&rec.ID, &startedAt, &rec.Outcome, &severity, &reason, &summary, &details, &notified); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		rec.StartedAt = time.Unix(startedAt, 0).UTC()
		rec.Severity = severity.String
		rec.Reason = reason.String
		rec.Summary = summary.String
		rec.Notified = notified != 0
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &rec.Details); err != nil {
				return nil, fmt.Errorf("decode run details: %w", err)
			}
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return records, nil
}
