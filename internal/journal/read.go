package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/serd/internal/engine"
	"github.com/roach88/serd/internal/ser"
)

// Run summarizes one executor run.
type Run struct {
	ID        string
	Game      string
	StartedAt time.Time
	EndedAt   time.Time // zero while running
	Outcome   string
	Reason    string
	Records   int
}

// Entry is one stored record.
type Entry struct {
	Seq        int64
	Kind       engine.RecordKind
	Actor      ser.Actor
	Text       string
	RecordedAt time.Time
}

// Runs returns every run, oldest first. Ties on start time are broken by id.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT r.id, r.game, r.started_at, r.ended_at, r.outcome, r.reason,
		       (SELECT COUNT(*) FROM records WHERE run_id = r.id)
		FROM runs r
		ORDER BY r.started_at ASC, r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run, or ErrRunNotFound.
func (j *Journal) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT r.id, r.game, r.started_at, r.ended_at, r.outcome, r.reason,
		       (SELECT COUNT(*) FROM records WHERE run_id = r.id)
		FROM runs r
		WHERE r.id = ?
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	return run, err
}

// Transcript returns every record of a run in sequence order. Returns an
// empty slice (not nil) for a run with no records.
func (j *Journal) Transcript(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, kind, actor, text, recorded_at
		FROM records
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e          Entry
			kind       string
			actor      int64
			recordedAt int64
		)
		if err := rows.Scan(&e.Seq, &kind, &actor, &e.Text, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		e.Kind = engine.RecordKind(kind)
		e.Actor = ser.Actor(uint64(actor))
		e.RecordedAt = time.UnixMilli(recordedAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run       Run
		startedAt int64
		endedAt   sql.NullInt64
	)
	if err := s.Scan(&run.ID, &run.Game, &startedAt, &endedAt, &run.Outcome, &run.Reason, &run.Records); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	if endedAt.Valid {
		run.EndedAt = time.UnixMilli(endedAt.Int64).UTC()
	}
	return run, nil
}
