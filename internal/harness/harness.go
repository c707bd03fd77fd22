package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/serd/internal/engine"
	"github.com/roach88/serd/internal/logging"
	"github.com/roach88/serd/internal/ser"
	"github.com/roach88/serd/internal/services/chat"
	"github.com/roach88/serd/internal/transport"
)

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger    *slog.Logger
	observers []engine.Observer
}

// WithLogger routes executor and dispatcher logs to l. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithObserver attaches an executor observer, e.g. a journal.
func WithObserver(o engine.Observer) Option {
	return func(c *runConfig) {
		c.observers = append(c.observers, o)
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build a fresh event context, Chat service and dispatcher
//  2. Feed the steps through a scripted I/O boundary
//  3. Compare transcript and outcome with the scenario's expectations
//
// An error is returned only when the scenario cannot be run at all; an
// executor failure is a "failure" outcome.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&cfg)
	}

	policy, err := engine.ParseUnknownServicePolicy(s.UnknownService)
	if err != nil {
		return nil, err
	}

	script := make([]engine.InputEvent, 0, len(s.Steps))
	for i, step := range s.Steps {
		ev, err := step.InputEvent()
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		script = append(script, ev)
	}

	admin := chat.DefaultAdmin
	if s.AdminActor != nil {
		admin = *s.AdminActor
	}

	events := ser.NewEventContext()
	dispatcher, err := ser.NewDispatcher(
		[]ser.Service{chat.New(events, chat.WithAdmin(admin))},
		ser.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build dispatcher: %w", err)
	}

	io := transport.NewScripted(script...)
	execOpts := []engine.ExecutorOption{
		engine.WithExecutorLogger(cfg.logger),
		engine.WithUnknownServicePolicy(policy),
		engine.WithRunIDGenerator(engine.FixedRunID(s.Name)),
	}
	for _, o := range cfg.observers {
		execOpts = append(execOpts, engine.WithObserver(o))
	}
	executor := engine.New(io, dispatcher, execOpts...)

	result := NewResult()
	result.Outcome = OutcomeSuccess
	if runErr := executor.Run(ctx); runErr != nil {
		result.Outcome = OutcomeFailure
		result.RunError = runErr.Error()
	}
	result.Transcript = io.Transcript()
	result.Undelivered = io.Remaining()

	checkExpectations(s, result)
	return result, nil
}

// RunID returns the run id a scenario's executor uses.
func RunID(s *Scenario) string {
	return engine.FixedRunID(s.Name).Generate()
}

func checkExpectations(s *Scenario, r *Result) {
	wantOutcome := s.ExpectOutcome
	if wantOutcome == "" {
		wantOutcome = OutcomeSuccess
	}
	if r.Outcome != wantOutcome {
		msg := fmt.Sprintf("outcome: expected %s, got %s", wantOutcome, r.Outcome)
		if r.RunError != "" {
			msg += " (" + r.RunError + ")"
		}
		r.AddError(msg)
	}

	if s.Expect == nil {
		return
	}

	n := max(len(s.Expect), len(r.Transcript))
	for i := 0; i < n; i++ {
		switch {
		case i >= len(r.Transcript):
			r.AddError(fmt.Sprintf("line %d: expected %q, transcript ended", i+1, s.Expect[i]))
		case i >= len(s.Expect):
			r.AddError(fmt.Sprintf("line %d: unexpected %q", i+1, r.Transcript[i]))
		case s.Expect[i] != r.Transcript[i]:
			r.AddError(fmt.Sprintf("line %d: expected %q, got %q", i+1, s.Expect[i], r.Transcript[i]))
		}
	}
}
