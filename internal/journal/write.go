package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/serd/internal/engine"
)

// Run outcomes.
const (
	OutcomeRunning = "running"
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ErrRunNotFound is returned for operations on a run id never begun.
var ErrRunNotFound = errors.New("run not found")

// BeginRun records the start of a run. Beginning the same run twice is an
// error.
func (j *Journal) BeginRun(ctx context.Context, runID, game string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, game, started_at, outcome)
		VALUES (?, ?, ?, ?)
	`, runID, game, j.now().UnixMilli(), OutcomeRunning)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", runID, err)
	}
	return nil
}

// Append stores one record at the next sequence number of its run.
func (j *Journal) Append(ctx context.Context, rec engine.Record) error {
	// Single connection: MAX(seq)+1 cannot race.
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO records (run_id, seq, kind, actor, text, recorded_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records WHERE run_id = ?), ?, ?, ?, ?)
	`,
		rec.Run,
		rec.Run,
		string(rec.Kind),
		int64(rec.Actor),
		rec.Text,
		j.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append %s record to run %s: %w", rec.Kind, rec.Run, err)
	}
	return nil
}

// EndRun records how a run ended. runErr nil means success.
func (j *Journal) EndRun(ctx context.Context, runID string, runErr error) error {
	outcome, reason := OutcomeSuccess, ""
	if runErr != nil {
		outcome, reason = OutcomeFailure, runErr.Error()
	}

	res, err := j.db.ExecContext(ctx, `
		UPDATE runs SET ended_at = ?, outcome = ?, reason = ?
		WHERE id = ?
	`, j.now().UnixMilli(), outcome, reason, runID)
	if err != nil {
		return fmt.Errorf("end run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end run %s: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("end run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Observer returns an engine.Observer appending every record to j.
func (j *Journal) Observer() engine.Observer {
	return engine.ObserverFunc(j.Append)
}
