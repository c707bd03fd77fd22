package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/serd/internal/engine"
	"github.com/roach88/serd/internal/logging"
	"github.com/roach88/serd/internal/ser"
)

// Client protocol commands. Any other message is a SER command.
const (
	LoginCommand  = "LOGIN"
	LogoutCommand = "LOGOUT"

	// InterruptCommand prefixes the last message sent before the server
	// closes a connection.
	InterruptCommand = "INTERRUPT"
)

// ErrBadClientMessage is wrapped by every error ParseClientMessage returns.
var ErrBadClientMessage = errors.New("bad client message")

// MessageKind classifies a client message.
type MessageKind int

const (
	MessageRequest MessageKind = iota
	MessageLogin
	MessageLogout
)

// ClientMessage is a parsed client protocol message.
type ClientMessage struct {
	Kind MessageKind

	// Name is the NFC-normalized actor name of a login.
	Name string

	// Text is the raw SER command of a request.
	Text string
}

// ParseClientMessage classifies one raw client message.
//
//	LOGIN <name>   name is everything after the first space, non-empty
//	LOGOUT         no arguments allowed
//	<anything>     SER command, passed through untouched
func ParseClientMessage(raw string) (ClientMessage, error) {
	words, rest := ser.SplitWords(raw, 1)
	command := ""
	if len(words) == 1 {
		command = words[0]
	}

	switch command {
	case LoginCommand:
		if len(raw) == len(LoginCommand) {
			return ClientMessage{}, fmt.Errorf("%w: expected new actor's name", ErrBadClientMessage)
		}
		if rest == "" {
			return ClientMessage{}, fmt.Errorf("%w: actor's name must not be empty", ErrBadClientMessage)
		}
		return ClientMessage{Kind: MessageLogin, Name: norm.NFC.String(rest)}, nil

	case LogoutCommand:
		if len(raw) != len(LogoutCommand) {
			return ClientMessage{}, fmt.Errorf("%w: %s takes no arguments", ErrBadClientMessage, LogoutCommand)
		}
		return ClientMessage{Kind: MessageLogout}, nil

	default:
		return ClientMessage{Kind: MessageRequest, Text: raw}, nil
	}
}

// Backend holds what every network I/O boundary shares: the input queue,
// actor id allocation and the logged-in actor registry.
//
// Register, Unregister and Push are safe from any goroutine. WaitForInput
// must only be called by the executor.
type Backend struct {
	queue  *inputQueue
	logger *slog.Logger

	mu        sync.Mutex
	nextActor ser.Actor
	actors    map[ser.Actor]string
}

// NewBackend creates an open backend. The first registered actor gets id 0.
func NewBackend(logger *slog.Logger) *Backend {
	return &Backend{
		queue:  newInputQueue(),
		logger: logging.Component(logger, "transport"),
		actors: make(map[ser.Actor]string),
	}
}

// Register allocates the next actor id for name and queues a JoinedEvent.
func (b *Backend) Register(name string) ser.Actor {
	b.mu.Lock()
	actor := b.nextActor
	b.nextActor++
	b.actors[actor] = name
	b.mu.Unlock()

	b.logger.Debug("actor registered", "actor", actor, "name", name)
	b.Push(engine.JoinedEvent{Actor: actor, Name: name})
	return actor
}

// Unregister forgets actor and queues a LeftEvent with reason ("" for a clean
// logout). Unknown actors are ignored.
func (b *Backend) Unregister(actor ser.Actor, reason string) {
	b.mu.Lock()
	_, ok := b.actors[actor]
	delete(b.actors, actor)
	b.mu.Unlock()

	if !ok {
		return
	}
	b.logger.Debug("actor unregistered", "actor", actor, "reason", reason)
	b.Push(engine.LeftEvent{Actor: actor, Reason: reason})
}

// ActorName returns the registered name of actor.
func (b *Backend) ActorName(actor ser.Actor) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	name, ok := b.actors[actor]
	return name, ok
}

// Actors returns the ids of logged-in actors, ascending.
func (b *Backend) Actors() []ser.Actor {
	b.mu.Lock()
	ids := make([]ser.Actor, 0, len(b.actors))
	for id := range b.actors {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Push queues an input event. Returns false once the backend is closed.
func (b *Backend) Push(ev engine.InputEvent) bool {
	if !b.queue.Enqueue(ev) {
		logging.Trace(b.logger, "input dropped, backend closed", "input", ev.String())
		return false
	}
	return true
}

// WaitForInput returns the next queued event, blocking until one arrives, the
// backend is closed (engine.ErrInputClosed) or ctx is done.
func (b *Backend) WaitForInput(ctx context.Context) (engine.InputEvent, error) {
	for {
		if ev, ok := b.queue.TryDequeue(); ok {
			return ev, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-b.queue.Wait():
			if b.queue.IsClosed() && b.queue.Len() == 0 {
				return nil, engine.ErrInputClosed
			}
		}
	}
}

// Close stops accepting input. Idempotent.
func (b *Backend) Close() {
	b.queue.Close()
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	return b.queue.IsClosed()
}
