package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/roach88/serd/internal/engine"
	"github.com/roach88/serd/internal/ser"
)

// DefaultMaxMessageBytes bounds a single client frame.
const DefaultMaxMessageBytes = 64 << 10

// ErrUnknownActor is returned when output targets an actor with no open
// connection.
var ErrUnknownActor = errors.New("unknown actor")

const stoppingReason = "server stopping"

// WebsocketBackend is the network I/O boundary: one websocket connection per
// actor, one text frame per message.
type WebsocketBackend struct {
	*Backend

	maxMessageBytes int

	mu    sync.Mutex
	conns map[ser.Actor]*actorConn
}

// actorConn serializes writes on one connection and remembers why the server
// closed it.
type actorConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool
	reason string
}

func (c *actorConn) send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	return websocket.Message.Send(c.ws, text)
}

// interrupt tells the client why, then closes. Only the first call counts.
func (c *actorConn) interrupt(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.reason = reason

	sendErr := websocket.Message.Send(c.ws, InterruptCommand+" "+reason)
	closeErr := c.ws.Close()
	return errors.Join(sendErr, closeErr)
}

func (c *actorConn) closeReason() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason, c.closed
}

// WebsocketOption configures a WebsocketBackend.
type WebsocketOption func(*WebsocketBackend)

// WithMaxMessageBytes bounds client frames. Larger frames close the
// connection. Default: DefaultMaxMessageBytes.
func WithMaxMessageBytes(n int) WebsocketOption {
	return func(b *WebsocketBackend) {
		if n > 0 {
			b.maxMessageBytes = n
		}
	}
}

// NewWebsocketBackend creates an open websocket boundary. Mount Handler on an
// HTTP server to accept clients.
func NewWebsocketBackend(logger *slog.Logger, opts ...WebsocketOption) *WebsocketBackend {
	b := &WebsocketBackend{
		Backend:         NewBackend(logger),
		maxMessageBytes: DefaultMaxMessageBytes,
		conns:           make(map[ser.Actor]*actorConn),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handler returns the websocket endpoint. Any origin is accepted.
func (b *WebsocketBackend) Handler() http.Handler {
	return websocket.Server{Handler: b.serveConn}
}

// serveConn runs for the lifetime of one client connection.
func (b *WebsocketBackend) serveConn(ws *websocket.Conn) {
	ws.MaxPayloadBytes = b.maxMessageBytes
	conn := &actorConn{ws: ws}
	defer func() {
		_ = ws.Close()
	}()

	if b.Closed() {
		_ = conn.interrupt(stoppingReason)
		return
	}

	var (
		actor    ser.Actor
		loggedIn bool
	)

	for {
		var raw string
		if err := websocket.Message.Receive(ws, &raw); err != nil {
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				_ = conn.interrupt(fmt.Sprintf("message exceeds %d bytes", b.maxMessageBytes))
			}
			if loggedIn {
				b.disconnect(actor, conn, err)
			}
			return
		}

		msg, err := ParseClientMessage(raw)
		if err == nil {
			switch {
			case !loggedIn && msg.Kind != MessageLogin:
				err = fmt.Errorf("%w: %s required first", ErrBadClientMessage, LoginCommand)
			case loggedIn && msg.Kind == MessageLogin:
				err = fmt.Errorf("%w: already logged in", ErrBadClientMessage)
			}
		}
		if err != nil {
			b.logger.Warn("bad client message", "remote", remoteAddr(ws), "error", err)
			_ = conn.interrupt(err.Error())
			if loggedIn {
				b.disconnect(actor, conn, err)
			}
			return
		}

		switch msg.Kind {
		case MessageLogin:
			b.mu.Lock()
			actor = b.Register(msg.Name)
			b.conns[actor] = conn
			b.mu.Unlock()
			loggedIn = true

		case MessageLogout:
			b.forget(actor, conn)
			b.Unregister(actor, "")
			return

		case MessageRequest:
			b.Push(engine.ServiceRequestEvent{Actor: actor, Request: msg.Text})
		}
	}
}

// disconnect unregisters an actor whose connection ended without LOGOUT.
func (b *WebsocketBackend) disconnect(actor ser.Actor, conn *actorConn, readErr error) {
	b.forget(actor, conn)
	reason, closedByServer := conn.closeReason()
	if !closedByServer {
		reason = readErr.Error()
	}
	b.Unregister(actor, reason)
}

func (b *WebsocketBackend) forget(actor ser.Actor, conn *actorConn) {
	b.mu.Lock()
	if b.conns[actor] == conn {
		delete(b.conns, actor)
	}
	b.mu.Unlock()
}

func (b *WebsocketBackend) conn(actor ser.Actor) (*actorConn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.conns[actor]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownActor, actor)
	}
	return c, nil
}

// ReplyTo sends response to one actor.
func (b *WebsocketBackend) ReplyTo(actor ser.Actor, response string) error {
	c, err := b.conn(actor)
	if err != nil {
		return err
	}
	if err := c.send(response); err != nil {
		return fmt.Errorf("reply to actor %d: %w", actor, err)
	}
	return nil
}

// OutputEvent sends event to every connected actor. Failing connections do
// not prevent delivery to the others.
func (b *WebsocketBackend) OutputEvent(event string) error {
	b.mu.Lock()
	targets := make(map[ser.Actor]*actorConn, len(b.conns))
	for actor, c := range b.conns {
		targets[actor] = c
	}
	b.mu.Unlock()

	var errs []error
	for actor, c := range targets {
		if err := c.send(event); err != nil {
			errs = append(errs, fmt.Errorf("broadcast to actor %d: %w", actor, err))
		}
	}
	return errors.Join(errs...)
}

// ClosePipelineWith sends "INTERRUPT <reason>" to actor and closes its
// connection. The actor's LeftEvent carries reason.
func (b *WebsocketBackend) ClosePipelineWith(actor ser.Actor, reason string) error {
	c, err := b.conn(actor)
	if err != nil {
		return err
	}
	b.logger.Info("closing actor pipeline", "actor", actor, "reason", reason)
	return c.interrupt(reason)
}

// Close stops accepting input and interrupts every connection.
func (b *WebsocketBackend) Close() {
	b.Backend.Close()

	b.mu.Lock()
	conns := make([]*actorConn, 0, len(b.conns))
	for _, c := range b.conns {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		_ = c.interrupt(stoppingReason)
	}
}

// ListenAndServe serves the websocket endpoint at path on addr until ctx is
// done, then shuts the HTTP server down.
func (b *WebsocketBackend) ListenAndServe(ctx context.Context, addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, b.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("listening", "addr", addr, "path", path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func remoteAddr(ws *websocket.Conn) string {
	if r := ws.Request(); r != nil {
		return r.RemoteAddr
	}
	return ""
}
