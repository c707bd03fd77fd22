package ser

// Actor is the opaque identifier of a connected participant.
type Actor = uint64

// HandlingResult reports whether a request handler succeeded, and if not, why.
// The zero value is a success.
type HandlingResult struct {
	failed  bool
	message string
}

// Success returns a successful result.
func Success() HandlingResult {
	return HandlingResult{}
}

// Failure returns a failed result carrying a human-readable message.
func Failure(message string) HandlingResult {
	return HandlingResult{failed: true, message: message}
}

// OK reports whether the handler succeeded.
func (r HandlingResult) OK() bool {
	return !r.failed
}

// ErrorMessage returns the failure message, or "" on success.
func (r HandlingResult) ErrorMessage() string {
	return r.message
}

// Service is the capability set every registered service provides.
//
// HandleRequestCommand performs the requested action and may emit events as a
// side effect. A failed HandlingResult is a business-logic failure; a non-nil
// error (or a panic) is a fault. The Dispatcher turns both into KO responses.
// Handlers run on the event loop and must not block indefinitely.
//
// CheckEvent peeks the id of the oldest unconsumed event. PollEvent removes
// and returns its payload and must only be called after CheckEvent reported
// one. Services usually get both by embedding an Emitter.
type Service interface {
	Name() string
	HandleRequestCommand(actor Actor, payload string) (HandlingResult, error)
	CheckEvent() (id uint64, ok bool)
	PollEvent() string
}

type queuedEvent struct {
	id      uint64
	payload string
}

// Emitter is the private event queue of a service. Embed it and call Emit
// from request handlers.
type Emitter struct {
	events *EventContext
	queue  []queuedEvent
}

// NewEmitter binds a queue to the run's event context.
func NewEmitter(events *EventContext) Emitter {
	return Emitter{events: events}
}

// Emit appends an event stamped with the next context id and returns the id.
func (e *Emitter) Emit(payload string) uint64 {
	id := e.events.NextEventID()
	e.queue = append(e.queue, queuedEvent{id: id, payload: payload})
	return id
}

// CheckEvent returns the id of the oldest queued event.
func (e *Emitter) CheckEvent() (uint64, bool) {
	if len(e.queue) == 0 {
		return 0, false
	}
	return e.queue[0].id, true
}

// PollEvent removes the oldest queued event and returns its payload.
//
// Panics if the queue is empty: callers must check first.
func (e *Emitter) PollEvent() string {
	if len(e.queue) == 0 {
		panic("ser: PollEvent called on empty event queue")
	}
	ev := e.queue[0]
	e.queue[0] = queuedEvent{}
	if len(e.queue) == 1 {
		e.queue = e.queue[:0]
	} else {
		e.queue = e.queue[1:]
	}
	return ev.payload
}

// Pending returns the number of unconsumed events.
func (e *Emitter) Pending() int {
	return len(e.queue)
}
