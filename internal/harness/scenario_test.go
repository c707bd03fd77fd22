package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/serd/internal/engine"
)

func TestLoadScenario(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/chat_custom_admin.yaml")
	require.NoError(t, err)

	assert.Equal(t, "chat_custom_admin", scenario.Name)
	require.NotNil(t, scenario.AdminActor)
	assert.Equal(t, uint64(3), *scenario.AdminActor)
	require.Len(t, scenario.Steps, 2)
	require.NotNil(t, scenario.Steps[1].Request)
	assert.Equal(t, uint64(3), scenario.Steps[1].Request.Actor)
	assert.Len(t, scenario.Expect, 3)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: tmp
description: written by the test
steps:
  - none: true
`), 0o600))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.True(t, scenario.Steps[0].None)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: x\ndescription: d\nstep: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: "description: d\nsteps:\n  - timer: true\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: x\nsteps:\n  - timer: true\n",
			want: "description is required",
		},
		{
			name: "no steps",
			yaml: "name: x\ndescription: d\n",
			want: "steps list is required",
		},
		{
			name: "empty step",
			yaml: "name: x\ndescription: d\nsteps:\n  - {}\n",
			want: "steps[0]: exactly one of",
		},
		{
			name: "two kinds in one step",
			yaml: "name: x\ndescription: d\nsteps:\n  - timer: true\n    none: true\n",
			want: "got 2",
		},
		{
			name: "bad policy",
			yaml: "name: x\ndescription: d\nunknown_service: ignore\nsteps:\n  - timer: true\n",
			want: "ignore",
		},
		{
			name: "bad outcome",
			yaml: "name: x\ndescription: d\nexpect_outcome: maybe\nsteps:\n  - timer: true\n",
			want: "expect_outcome must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStep_InputEvent(t *testing.T) {
	tests := []struct {
		name string
		step Step
		want engine.InputEvent
	}{
		{"request", Step{Request: &RequestStep{Actor: 2, Text: "REQUEST 1 Chat hi"}}, engine.ServiceRequestEvent{Actor: 2, Request: "REQUEST 1 Chat hi"}},
		{"join", Step{Join: &JoinStep{Actor: 1, Name: "bob"}}, engine.JoinedEvent{Actor: 1, Name: "bob"}},
		{"leave", Step{Leave: &LeaveStep{Actor: 1, Reason: "timeout"}}, engine.LeftEvent{Actor: 1, Reason: "timeout"}},
		{"timer", Step{Timer: true}, engine.TimerEvent{}},
		{"none", Step{None: true}, engine.NoneEvent{}},
		{"stop", Step{Stop: &StopStep{Signal: 2}}, engine.StopEvent{Signal: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.step.InputEvent()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
