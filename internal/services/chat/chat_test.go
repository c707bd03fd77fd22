package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/serd/internal/logging"
	"github.com/roach88/serd/internal/ser"
)

func newChatDispatcher(t *testing.T, opts ...Option) (*Service, *ser.Dispatcher) {
	t.Helper()
	svc := New(ser.NewEventContext(), opts...)
	d, err := ser.NewDispatcher([]ser.Service{svc}, ser.WithLogger(logging.Discard()))
	require.NoError(t, err)
	return svc, d
}

func TestChat_AdminToggle(t *testing.T) {
	svc, d := newChatDispatcher(t)

	resp, err := d.HandleServiceRequest(0, "REQUEST 1 Chat /toggle")
	require.NoError(t, err)
	assert.Equal(t, "RESPONSE 1 OK", resp)

	ev, ok := d.PollServiceEvent()
	require.True(t, ok)
	assert.Equal(t, "EVENT Chat DISABLED", ev)
	assert.False(t, svc.Enabled())

	resp, err = d.HandleServiceRequest(0, "REQUEST 2 Chat /toggle")
	require.NoError(t, err)
	assert.Equal(t, "RESPONSE 2 OK", resp)

	ev, ok = d.PollServiceEvent()
	require.True(t, ok)
	assert.Equal(t, "EVENT Chat ENABLED", ev)
	assert.True(t, svc.Enabled())
}

func TestChat_NonAdminToggleDenied(t *testing.T) {
	svc, d := newChatDispatcher(t)

	resp, err := d.HandleServiceRequest(5, "REQUEST 2 Chat /toggle")
	require.NoError(t, err)
	assert.Equal(t, "RESPONSE 2 KO Permission denied: you must be admin to use that command", resp)

	_, ok := d.PollServiceEvent()
	assert.False(t, ok, "no event should be emitted")
	assert.True(t, svc.Enabled())
}

func TestChat_ToggleWithArgs(t *testing.T) {
	_, d := newChatDispatcher(t)

	resp, err := d.HandleServiceRequest(0, "REQUEST 3 Chat /toggle now")
	require.NoError(t, err)
	assert.Equal(t, "RESPONSE 3 KO "+MsgToggleArgs, resp)
}

func TestChat_Messages(t *testing.T) {
	_, d := newChatDispatcher(t)

	resp, err := d.HandleServiceRequest(4, "REQUEST 1 Chat hello  world")
	require.NoError(t, err)
	assert.Equal(t, "RESPONSE 1 OK", resp)

	ev, ok := d.PollServiceEvent()
	require.True(t, ok)
	assert.Equal(t, "EVENT Chat MESSAGE_FROM 4 hello  world", ev)
}

func TestChat_EmptyMessage(t *testing.T) {
	tests := []struct {
		name    string
		command string
	}{
		{"no payload", "REQUEST 1 Chat"},
		{"empty payload", "REQUEST 1 Chat "},
		{"leading space", "REQUEST 1 Chat  hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, d := newChatDispatcher(t)
			resp, err := d.HandleServiceRequest(1, tt.command)
			require.NoError(t, err)
			assert.Equal(t, "RESPONSE 1 KO "+MsgEmpty, resp)
		})
	}
}

func TestChat_DisabledRejectsMessages(t *testing.T) {
	_, d := newChatDispatcher(t)

	_, err := d.HandleServiceRequest(0, "REQUEST 1 Chat /toggle")
	require.NoError(t, err)
	_, _ = d.PollServiceEvent()

	resp, err := d.HandleServiceRequest(0, "REQUEST 2 Chat anyone?")
	require.NoError(t, err)
	assert.Equal(t, "RESPONSE 2 KO Chat disabled by admin.", resp)

	_, ok := d.PollServiceEvent()
	assert.False(t, ok)
}

func TestChat_ConfigurableAdmin(t *testing.T) {
	_, d := newChatDispatcher(t, WithAdmin(7))

	resp, err := d.HandleServiceRequest(0, "REQUEST 1 Chat /toggle")
	require.NoError(t, err)
	assert.Equal(t, "RESPONSE 1 KO "+MsgPermissionDenied, resp)

	resp, err = d.HandleServiceRequest(7, "REQUEST 2 Chat /toggle")
	require.NoError(t, err)
	assert.Equal(t, "RESPONSE 2 OK", resp)
}

func TestChat_NormalizesMessages(t *testing.T) {
	_, d := newChatDispatcher(t)

	_, err := d.HandleServiceRequest(2, "REQUEST 1 Chat cafe\u0301")
	require.NoError(t, err)

	ev, ok := d.PollServiceEvent()
	require.True(t, ok)
	assert.Equal(t, "EVENT Chat MESSAGE_FROM 2 caf\u00e9", ev)
}
