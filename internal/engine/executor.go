package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/serd/internal/logging"
	"github.com/roach88/serd/internal/ser"
)

// State is the lifecycle state of an Executor.
type State int32

const (
	StateRunning State = iota
	StateStoppedSuccess
	StateStoppedFailure
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStoppedSuccess:
		return "stopped(success)"
	case StateStoppedFailure:
		return "stopped(failure)"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// UnknownServicePolicy decides what an SR command naming an unregistered
// service does to the run.
type UnknownServicePolicy string

const (
	// UnknownServiceClosePipeline closes the requesting actor's pipeline, as
	// for a malformed command.
	UnknownServiceClosePipeline UnknownServicePolicy = "close"

	// UnknownServiceFatal stops the whole run as a failure.
	UnknownServiceFatal UnknownServicePolicy = "fatal"
)

// ParseUnknownServicePolicy parses "close" or "fatal". Empty means close.
func ParseUnknownServicePolicy(raw string) (UnknownServicePolicy, error) {
	switch UnknownServicePolicy(raw) {
	case "", UnknownServiceClosePipeline:
		return UnknownServiceClosePipeline, nil
	case UnknownServiceFatal:
		return UnknownServiceFatal, nil
	default:
		return "", fmt.Errorf("unknown service policy %q (want %q or %q)",
			raw, UnknownServiceClosePipeline, UnknownServiceFatal)
	}
}

// Executor is the single-writer main loop.
//
// Run must be called from exactly one goroutine, at most once. State and RunID
// are safe to call from anywhere.
type Executor struct {
	io         InputOutput
	dispatcher *ser.Dispatcher
	unknown    UnknownServicePolicy
	observers  []Observer
	runIDs     RunIDGenerator
	logger     *slog.Logger

	runID string
	state atomic.Int32
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithUnknownServicePolicy sets the unknown-service policy.
// Default: UnknownServiceClosePipeline.
func WithUnknownServicePolicy(p UnknownServicePolicy) ExecutorOption {
	return func(e *Executor) {
		e.unknown = p
	}
}

// WithObserver adds an observer. Observers are called in the order added.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithRunIDGenerator sets the run id source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) ExecutorOption {
	return func(e *Executor) {
		e.runIDs = g
	}
}

// WithExecutorLogger sets the logger. Default: slog.Default().
func WithExecutorLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = l
	}
}

// New creates an Executor driving io with dispatcher.
func New(io InputOutput, dispatcher *ser.Dispatcher, opts ...ExecutorOption) *Executor {
	e := &Executor{
		io:         io,
		dispatcher: dispatcher,
		unknown:    UnknownServiceClosePipeline,
		runIDs:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.runID = e.runIDs.Generate()
	e.logger = logging.Component(e.logger, "executor").With("run", e.runID)
	return e
}

// RunID returns the identifier of this run.
func (e *Executor) RunID() string {
	return e.runID
}

// State returns the current lifecycle state.
func (e *Executor) State() State {
	return State(e.state.Load())
}

// Run handles input events until the I/O boundary is closed.
//
// Returns nil when the loop exits because the boundary reports closed (after a
// Stop input, or when the boundary closes itself). Any other exit is a
// failure and returns a *RunError.
func (e *Executor) Run(ctx context.Context) error {
	e.logger.Info("executor starting", "services", e.dispatcher.Services(), "unknown_service", string(e.unknown))

	for !e.io.Closed() {
		input, err := e.io.WaitForInput(ctx)
		if err != nil {
			if e.io.Closed() && errors.Is(err, ErrInputClosed) {
				break
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return e.fail(ErrCodeCancelled, ctxErr)
			}
			return e.fail(ErrCodeInputFailed, err)
		}

		if err := e.handleInput(ctx, input); err != nil {
			return err
		}

		e.drainEvents(ctx)
	}

	e.state.Store(int32(StateStoppedSuccess))
	e.logger.Info("executor stopped")
	return nil
}

// handleInput dispatches one input event by kind. The returned error is
// loop-fatal and already logged.
func (e *Executor) handleInput(ctx context.Context, input InputEvent) error {
	switch ev := input.(type) {
	case NoneEvent, TimerEvent:
		logging.Trace(e.logger, "idle input", "input", ev.String())

	case ServiceRequestEvent:
		return e.handleServiceRequest(ctx, ev)

	case JoinedEvent:
		e.logger.Info("actor joined", "actor", ev.Actor, "name", ev.Name)
		e.observe(ctx, RecordJoined, ev.Actor, ev.Name)

	case LeftEvent:
		if ev.Clean() {
			e.logger.Info("actor left", "actor", ev.Actor)
		} else {
			e.logger.Warn("actor left with error", "actor", ev.Actor, "reason", ev.Reason)
		}
		e.observe(ctx, RecordLeft, ev.Actor, ev.Reason)

	case StopEvent:
		e.logger.Info("stop requested", "signal", ev.Signal)
		e.observe(ctx, RecordStop, 0, ev.String())
		e.io.Close()

	default:
		e.logger.Warn("ignoring unsupported input event", "input", fmt.Sprintf("%T", input))
	}
	return nil
}

func (e *Executor) handleServiceRequest(ctx context.Context, ev ServiceRequestEvent) error {
	e.observe(ctx, RecordRequest, ev.Actor, ev.Request)

	response, err := e.dispatcher.HandleServiceRequest(ev.Actor, ev.Request)
	switch {
	case err == nil:
		if replyErr := e.io.ReplyTo(ev.Actor, response); replyErr != nil {
			e.logger.Error("failed to reply", "actor", ev.Actor, "error", replyErr)
		}
		e.observe(ctx, RecordReply, ev.Actor, response)
		return nil

	case ser.IsFormatError(err):
		e.logger.Warn("malformed SR command", "actor", ev.Actor, "error", err)
		e.closePipeline(ctx, ev.Actor, err.Error())
		return nil

	case ser.IsServiceNotFound(err):
		if e.unknown == UnknownServiceFatal {
			return e.fail(ErrCodeUnknownService, err)
		}
		e.logger.Warn("SR command for unknown service", "actor", ev.Actor, "error", err)
		e.closePipeline(ctx, ev.Actor, err.Error())
		return nil

	default:
		return e.fail(ErrCodeDispatchFailed, err)
	}
}

func (e *Executor) closePipeline(ctx context.Context, actor ser.Actor, reason string) {
	if err := e.io.ClosePipelineWith(actor, reason); err != nil {
		e.logger.Error("failed to close actor pipeline", "actor", actor, "error", err)
	}
	e.observe(ctx, RecordClose, actor, reason)
}

// drainEvents broadcasts every pending service event in global order.
func (e *Executor) drainEvents(ctx context.Context) {
	for {
		event, ok := e.dispatcher.PollServiceEvent()
		if !ok {
			return
		}
		if err := e.io.OutputEvent(event); err != nil {
			e.logger.Error("failed to broadcast event", "event", event, "error", err)
		}
		e.observe(ctx, RecordEvent, 0, event)
	}
}

func (e *Executor) observe(ctx context.Context, kind RecordKind, actor ser.Actor, text string) {
	if len(e.observers) == 0 {
		return
	}
	rec := Record{Run: e.runID, Kind: kind, Actor: actor, Text: text}
	for _, o := range e.observers {
		if err := o.Observe(ctx, rec); err != nil {
			e.logger.Warn("observer failed", "kind", string(kind), "error", err)
		}
	}
}

func (e *Executor) fail(code RunErrorCode, err error) error {
	e.state.Store(int32(StateStoppedFailure))
	runErr := &RunError{Code: code, RunID: e.runID, Err: err}
	e.logger.Error("executor stopped", "error", runErr)
	return runErr
}
