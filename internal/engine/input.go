package engine

import (
	"fmt"

	"github.com/roach88/serd/internal/ser"
)

// InputEvent is one externally sourced occurrence fed to the Executor.
//
// The set is closed: NoneEvent, ServiceRequestEvent, TimerEvent, JoinedEvent,
// LeftEvent and StopEvent.
type InputEvent interface {
	fmt.Stringer

	// inputEvent restricts implementers to this package.
	inputEvent()
}

// NoneEvent is an idle tick.
type NoneEvent struct{}

// ServiceRequestEvent carries a raw SR command received from an actor.
type ServiceRequestEvent struct {
	Actor   ser.Actor
	Request string
}

// TimerEvent is a scheduled wake-up. It has no effect yet.
type TimerEvent struct{}

// JoinedEvent reports a newly logged-in actor.
type JoinedEvent struct {
	Actor ser.Actor
	Name  string
}

// LeftEvent reports a disconnected actor. Reason is empty for a clean
// disconnection and holds the error otherwise.
type LeftEvent struct {
	Actor  ser.Actor
	Reason string
}

// Clean reports whether the actor disconnected without error.
func (e LeftEvent) Clean() bool {
	return e.Reason == ""
}

// StopEvent asks the loop to terminate; Signal is the caught signal number,
// 0 when the stop was not caused by a signal.
type StopEvent struct {
	Signal int
}

func (NoneEvent) inputEvent()           {}
func (ServiceRequestEvent) inputEvent() {}
func (TimerEvent) inputEvent()          {}
func (JoinedEvent) inputEvent()         {}
func (LeftEvent) inputEvent()           {}
func (StopEvent) inputEvent()           {}

func (NoneEvent) String() string { return "none" }

func (e ServiceRequestEvent) String() string {
	return fmt.Sprintf("service request from %d: %q", e.Actor, e.Request)
}

func (TimerEvent) String() string { return "timer" }

func (e JoinedEvent) String() string {
	return fmt.Sprintf("actor %d joined as %q", e.Actor, e.Name)
}

func (e LeftEvent) String() string {
	if e.Clean() {
		return fmt.Sprintf("actor %d left", e.Actor)
	}
	return fmt.Sprintf("actor %d left: %s", e.Actor, e.Reason)
}

func (e StopEvent) String() string {
	return fmt.Sprintf("stop (signal %d)", e.Signal)
}
