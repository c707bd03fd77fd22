package engine

import (
	"github.com/google/uuid"
)

// RunIDGenerator produces the identifier of one Executor run.
// Implemented by UUIDv7Generator (production) and FixedRunID (tests).
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids, so journal runs sort
// by start time.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedRunID always returns the same id. Used for deterministic transcripts.
type FixedRunID string

// Generate returns the fixed id, or "test-run" when empty.
func (f FixedRunID) Generate() string {
	if f == "" {
		return "test-run"
	}
	return string(f)
}
