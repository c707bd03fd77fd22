package engine

import (
	"context"

	"github.com/roach88/serd/internal/ser"
)

// RecordKind identifies what an observed Record describes.
type RecordKind string

const (
	RecordRequest RecordKind = "request" // SR command received
	RecordReply   RecordKind = "reply"   // SRR sent to one actor
	RecordEvent   RecordKind = "event"   // SE broadcast
	RecordClose   RecordKind = "close"   // actor pipeline closed by the loop
	RecordJoined  RecordKind = "joined"
	RecordLeft    RecordKind = "left"
	RecordStop    RecordKind = "stop"
)

// Record is one observable step of a run.
type Record struct {
	Run   string
	Kind  RecordKind
	Actor ser.Actor
	Text  string
}

// Observer is notified of every Record, synchronously, on the loop goroutine.
// A returned error is logged and never stops the run.
type Observer interface {
	Observe(ctx context.Context, rec Record) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, rec Record) error

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}
