package engine

import (
	"context"
	"errors"

	"github.com/roach88/serd/internal/ser"
)

// ErrInputClosed is returned by WaitForInput once the boundary is closed and
// has nothing left to deliver.
var ErrInputClosed = errors.New("input closed")

// InputOutput is the I/O boundary the Executor drives.
//
// Implementations may use goroutines internally, but WaitForInput hands over
// exactly one event per call and the output methods are only called from the
// Executor's goroutine.
type InputOutput interface {
	// WaitForInput blocks until an input event is ready or ctx is done.
	WaitForInput(ctx context.Context) (InputEvent, error)

	// ReplyTo sends an SRR line to one actor.
	ReplyTo(actor ser.Actor, response string) error

	// OutputEvent broadcasts an SE line to every actor.
	OutputEvent(event string) error

	// ClosePipelineWith terminates one actor's channel, telling it why.
	ClosePipelineWith(actor ser.Actor, reason string) error

	// Close releases the boundary. Closed reports true afterwards.
	Close()

	// Closed reports whether Close was called.
	Closed() bool
}
