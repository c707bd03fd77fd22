package transport

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/roach88/serd/internal/engine"
)

// Pusher accepts input events from outside the executor goroutine.
type Pusher interface {
	Push(ev engine.InputEvent) bool
}

// NotifyStop turns SIGINT and SIGTERM into a StopEvent pushed to p. It
// returns a function that stops listening; it also stops when ctx is done.
func NotifyStop(ctx context.Context, p Pusher) (stop func()) {
	return notifyStop(ctx, p, os.Interrupt, syscall.SIGTERM)
}

func notifyStop(ctx context.Context, p Pusher, sigs ...os.Signal) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	done := make(chan struct{})
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case sig := <-ch:
				p.Push(engine.StopEvent{Signal: signalNumber(sig)})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

func signalNumber(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return int(s)
	}
	return 0
}
