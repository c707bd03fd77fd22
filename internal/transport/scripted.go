package transport

import (
	"context"
	"fmt"

	"github.com/roach88/serd/internal/engine"
	"github.com/roach88/serd/internal/ser"
)

// Transcript line prefixes written by Scripted.
const (
	ReplyLine     = "REPLY"
	BroadcastLine = "BROADCAST"
	CloseLine     = "CLOSE"
)

// Scripted is a deterministic I/O boundary: it hands out a fixed list of
// input events and records every output as a transcript line. It closes
// itself once the script is exhausted.
//
// Not safe for concurrent use; the executor is its only caller.
type Scripted struct {
	script []engine.InputEvent
	next   int
	closed bool
	lines  []string
}

// NewScripted creates a boundary that will deliver script in order.
func NewScripted(script ...engine.InputEvent) *Scripted {
	return &Scripted{script: script}
}

// WaitForInput returns the next scripted event.
func (s *Scripted) WaitForInput(ctx context.Context) (engine.InputEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed {
		return nil, engine.ErrInputClosed
	}
	if s.next >= len(s.script) {
		s.closed = true
		return nil, engine.ErrInputClosed
	}
	ev := s.script[s.next]
	s.next++
	return ev, nil
}

// ReplyTo records "REPLY <actor> <response>".
func (s *Scripted) ReplyTo(actor ser.Actor, response string) error {
	s.lines = append(s.lines, fmt.Sprintf("%s %d %s", ReplyLine, actor, response))
	return nil
}

// OutputEvent records "BROADCAST <event>".
func (s *Scripted) OutputEvent(event string) error {
	s.lines = append(s.lines, BroadcastLine+" "+event)
	return nil
}

// ClosePipelineWith records "CLOSE <actor> <reason>".
func (s *Scripted) ClosePipelineWith(actor ser.Actor, reason string) error {
	s.lines = append(s.lines, fmt.Sprintf("%s %d %s", CloseLine, actor, reason))
	return nil
}

// Close marks the boundary closed; remaining script entries are skipped.
func (s *Scripted) Close() {
	s.closed = true
}

// Closed reports whether the boundary is closed.
func (s *Scripted) Closed() bool {
	return s.closed
}

// Transcript returns the recorded lines.
func (s *Scripted) Transcript() []string {
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// Remaining returns how many scripted events were never delivered.
func (s *Scripted) Remaining() int {
	return len(s.script) - s.next
}
