// Package mirror republishes broadcast service events to NATS, one subject
// per service, so external tools can follow a running server.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/roach88/serd/internal/engine"
	"github.com/roach88/serd/internal/ser"
)

// DefaultSubject prefixes every mirrored subject.
const DefaultSubject = "serd.events"

// Headers set on every mirrored message.
const (
	HeaderRun     = "Serd-Run"
	HeaderService = "Serd-Service"
)

// ErrMalformedEvent is returned for event records that are not SE lines.
var ErrMalformedEvent = errors.New("malformed service event")

// Publisher is a minimal NATS-like publisher. Wrap a *nats.Conn (Connect
// does) or substitute a fake in tests.
type Publisher interface {
	Publish(subject string, data []byte, headers map[string]string) error
}

// Mirror is an engine.Observer publishing each broadcast SE line to
// "<subject>.<SERVICE_NAME>". Other records are ignored.
type Mirror struct {
	pub     Publisher
	subject string
}

var _ engine.Observer = (*Mirror)(nil)

// New creates a mirror. An empty subject means DefaultSubject.
func New(pub Publisher, subject string) *Mirror {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Mirror{pub: pub, subject: subject}
}

// Observe publishes rec if it is a broadcast event.
func (m *Mirror) Observe(_ context.Context, rec engine.Record) error {
	if rec.Kind != engine.RecordEvent {
		return nil
	}

	service, err := eventService(rec.Text)
	if err != nil {
		return err
	}

	subject := m.subject + "." + service
	headers := map[string]string{
		HeaderRun:     rec.Run,
		HeaderService: service,
	}
	if err := m.pub.Publish(subject, []byte(rec.Text), headers); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

// eventService extracts SERVICE_NAME from "EVENT <SERVICE_NAME> <payload>".
func eventService(line string) (string, error) {
	words, _ := ser.SplitWords(line, 2)
	if len(words) < 2 || words[0] != ser.EventPrefix {
		return "", fmt.Errorf("%w: %q", ErrMalformedEvent, line)
	}
	return words[1], nil
}

// Config describes the NATS connection.
type Config struct {
	URL           string
	Name          string
	Subject       string
	ConnTimeout   time.Duration
	MaxReconnects int
}

type natsPublisher struct{ nc *nats.Conn }

func (p natsPublisher) Publish(subject string, data []byte, headers map[string]string) error {
	msg := &nats.Msg{Subject: subject, Data: data}

	if len(headers) > 0 {
		msg.Header = nats.Header{}
		for k, v := range headers {
			msg.Header.Add(k, v)
		}
	}

	return p.nc.PublishMsg(msg)
}

// Connect dials NATS and returns a mirror plus a cleanup that drains the
// connection.
func Connect(cfg Config) (*Mirror, func(), error) {
	if cfg.URL == "" {
		return nil, nil, errors.New("nats url required")
	}

	opts := []nats.Option{}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	if cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnTimeout))
	}
	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	cleanup := func() {
		if !nc.IsClosed() {
			_ = nc.Drain()
			nc.Close()
		}
	}

	return New(natsPublisher{nc: nc}, cfg.Subject), cleanup, nil
}
