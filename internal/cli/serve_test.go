package cli

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/roach88/serd/internal/engine"
	"github.com/roach88/serd/internal/journal"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServe_InvalidGame(t *testing.T) {
	_, stderr, code := execute(t, "serve", "--game", "poker")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, `unknown game "poker"`)
}

func TestServe_InvalidPolicy(t *testing.T) {
	_, stderr, code := execute(t, "serve", "--unknown-service", "ignore")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "invalid configuration")
}

func TestServe_InvalidLogLevel(t *testing.T) {
	_, stderr, code := execute(t, "serve", "--log-level", "loud")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "unable to parse level")
}

func TestServe_MissingConfigFile(t *testing.T) {
	_, stderr, code := execute(t, "serve", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "failed to load configuration")
}

func TestServe_AddressInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	done := make(chan int, 1)
	var stdout, stderr bytes.Buffer
	go func() {
		done <- Execute(context.Background(), []string{"serve", "--listen", l.Addr().String(), "--log-level", "error"}, &stdout, &stderr)
	}()

	select {
	case code := <-done:
		assert.Equal(t, ExitFailure, code)
		assert.Contains(t, stderr.String(), "websocket server failed")
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not fail on a busy address")
	}
}

func TestServe_EndToEnd(t *testing.T) {
	addr := freeAddr(t)
	db := filepath.Join(t.TempDir(), "serd.db")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan int, 1)
	var stdout, stderr bytes.Buffer
	go func() {
		done <- Execute(ctx, []string{"serve", "--listen", addr, "--path", "/ws", "--journal", db, "--log-level", "error"}, &stdout, &stderr)
	}()

	var ws *websocket.Conn
	require.Eventually(t, func() bool {
		c, err := websocket.Dial("ws://"+addr+"/ws", "", "http://localhost/")
		if err != nil {
			return false
		}
		ws = c
		return true
	}, 5*time.Second, 20*time.Millisecond)
	defer ws.Close()

	require.NoError(t, websocket.Message.Send(ws, "LOGIN alice"))
	require.NoError(t, websocket.Message.Send(ws, "REQUEST 1 Chat hello"))

	var msg string
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, websocket.Message.Receive(ws, &msg))
	assert.Equal(t, "RESPONSE 1 OK", msg)
	require.NoError(t, websocket.Message.Receive(ws, &msg))
	assert.Equal(t, "EVENT Chat MESSAGE_FROM 0 hello", msg)

	cancel()
	select {
	case code := <-done:
		require.Equal(t, ExitSuccess, code, "stderr: %s", stderr.String())
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
	assert.Contains(t, stdout.String(), "serd serving chat on ws://"+addr+"/ws")

	j, err := journal.Open(db)
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.OutcomeSuccess, runs[0].Outcome)

	entries, err := j.Transcript(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(entries), 4)
	assert.Equal(t, engine.RecordJoined, entries[0].Kind)
	assert.Equal(t, "alice", entries[0].Text)
	assert.Equal(t, engine.RecordRequest, entries[1].Kind)
	assert.Equal(t, engine.RecordReply, entries[2].Kind)
	assert.Equal(t, "RESPONSE 1 OK", entries[2].Text)
	assert.Equal(t, engine.RecordEvent, entries[3].Kind)
}
