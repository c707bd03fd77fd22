package transport

import (
	"sync"

	"github.com/roach88/serd/internal/engine"
)

// inputQueue is a thread-safe unbounded FIFO of input events.
//
// Connection goroutines enqueue; the executor goroutine dequeues through
// WaitForInput. The signal channel allows context-aware waiting.
type inputQueue struct {
	mu     sync.Mutex
	events []engine.InputEvent
	closed bool
	signal chan struct{} // buffered, size 1
}

func newInputQueue() *inputQueue {
	return &inputQueue{
		events: make([]engine.InputEvent, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *inputQueue) Enqueue(ev engine.InputEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, ev)

	// Buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
func (q *inputQueue) TryDequeue() (engine.InputEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil, false
	}

	ev := q.events[0]
	q.events[0] = nil
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return ev, true
}

// Wait returns a channel that signals when events may be available. It is
// closed once the queue is closed.
func (q *inputQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued events.
func (q *inputQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close rejects further events and wakes waiters. Idempotent.
func (q *inputQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// IsClosed reports whether Close was called.
func (q *inputQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
