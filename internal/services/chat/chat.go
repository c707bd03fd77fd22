// Package chat implements the Chat service: a broadcast chat room that the
// admin actor can switch off and on with "/toggle".
package chat

import (
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/serd/internal/ser"
)

// Name is the registered service name.
const Name = "Chat"

// ToggleCommand flips the chat state. Admin only.
const ToggleCommand = "/toggle"

// Event payloads.
const (
	EventEnabled     = "ENABLED"
	EventDisabled    = "DISABLED"
	EventMessageFrom = "MESSAGE_FROM"
)

// Failure messages returned as KO responses.
const (
	MsgEmpty            = "Message cannot be empty"
	MsgToggleArgs       = "Invalid arguments for /toggle: command hasn't any args"
	MsgPermissionDenied = "Permission denied: you must be admin to use that command"
	MsgDisabled         = "Chat disabled by admin."
)

// DefaultAdmin is the admin actor: the first actor to log in.
const DefaultAdmin ser.Actor = 0

// Service is the Chat service. It starts enabled.
type Service struct {
	ser.Emitter

	admin   ser.Actor
	enabled bool
}

// Option configures a Service.
type Option func(*Service)

// WithAdmin sets the actor allowed to toggle the chat.
func WithAdmin(actor ser.Actor) Option {
	return func(s *Service) {
		s.admin = actor
	}
}

// New creates an enabled chat bound to the run's event context.
func New(events *ser.EventContext, opts ...Option) *Service {
	s := &Service{
		Emitter: ser.NewEmitter(events),
		admin:   DefaultAdmin,
		enabled: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns "Chat".
func (s *Service) Name() string {
	return Name
}

// Enabled reports whether messages are currently accepted.
func (s *Service) Enabled() bool {
	return s.enabled
}

// HandleRequestCommand handles either "/toggle" or a chat message.
func (s *Service) HandleRequestCommand(actor ser.Actor, payload string) (ser.HandlingResult, error) {
	words, rest := ser.SplitWords(payload, 1)
	if len(words) == 0 {
		return ser.Failure(MsgEmpty), nil
	}

	if words[0] == ToggleCommand {
		if rest != "" {
			return ser.Failure(MsgToggleArgs), nil
		}
		if actor != s.admin {
			return ser.Failure(MsgPermissionDenied), nil
		}

		s.enabled = !s.enabled
		if s.enabled {
			s.Emit(EventEnabled)
		} else {
			s.Emit(EventDisabled)
		}
		return ser.Success(), nil
	}

	if !s.enabled {
		return ser.Failure(MsgDisabled), nil
	}

	s.Emit(EventMessageFrom + " " + strconv.FormatUint(actor, 10) + " " + norm.NFC.String(payload))
	return ser.Success(), nil
}
