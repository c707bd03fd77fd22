package ser

import "sync/atomic"

// EventContext is the run-scoped event id source shared by every service.
//
// Ids start at 1 and strictly increase for the lifetime of the context; they
// are never reused, even across services. A uint64 counter does not wrap at
// any realistic event volume, so overflow is not guarded.
//
// Construct exactly one per run and pass it to each service. Services hold a
// reference to it and never control its lifetime.
type EventContext struct {
	last atomic.Uint64
}

// NewEventContext creates a context whose first issued id is 1.
func NewEventContext() *EventContext {
	return &EventContext{}
}

// NextEventID returns a fresh id, strictly greater than every id returned
// before it.
func (c *EventContext) NextEventID() uint64 {
	return c.last.Add(1)
}

// Current returns the most recently issued id, or 0 if none was issued.
func (c *EventContext) Current() uint64 {
	return c.last.Load()
}
