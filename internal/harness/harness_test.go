package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/serd/internal/engine"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenarios found")

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "scenario name must match file name")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "expectation errors: %v", result.Errors)
		})
	}
}

func TestRun_StopSkipsRemainingSteps(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/stop_ends_run.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Empty(t, result.RunError)
	assert.Equal(t, 1, result.Undelivered)
}

func TestRun_FatalUnknownServiceSkipsRemainingSteps(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/unknown_service_fatal.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "expectation errors: %v", result.Errors)
	assert.Equal(t, OutcomeFailure, result.Outcome)
	assert.Contains(t, result.RunError, "UNKNOWN_SERVICE")
	assert.Equal(t, 1, result.Undelivered)
}

func TestRun_ReportsTranscriptMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "expectations that do not hold",
		Steps: []Step{
			{Request: &RequestStep{Actor: 0, Text: "REQUEST 1 Chat hi"}},
		},
		Expect: []string{
			"REPLY 0 RESPONSE 1 KO nope",
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], `expected "REPLY 0 RESPONSE 1 KO nope", got "REPLY 0 RESPONSE 1 OK"`)
	assert.Contains(t, result.Errors[1], `unexpected "BROADCAST EVENT Chat MESSAGE_FROM 0 hi"`)
}

func TestRun_ReportsMissingLines(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing",
		Description: "expects more output than produced",
		Steps:       []Step{{Timer: true}},
		Expect:      []string{"BROADCAST EVENT Chat ENABLED"},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "transcript ended")
}

func TestRun_ReportsOutcomeMismatch(t *testing.T) {
	scenario := &Scenario{
		Name:           "outcome",
		Description:    "expects success but the run fails",
		UnknownService: "fatal",
		Steps: []Step{
			{Request: &RequestStep{Actor: 0, Text: "REQUEST 1 Nope x"}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "outcome: expected success, got failure")
}

func TestRun_NilExpectSkipsTranscriptComparison(t *testing.T) {
	scenario := &Scenario{
		Name:        "no_expect",
		Description: "only the outcome is checked",
		Steps: []Step{
			{Request: &RequestStep{Actor: 0, Text: "REQUEST 1 Chat hi"}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass)
	assert.Len(t, result.Transcript, 2)
}

func TestRun_CancelledContext(t *testing.T) {
	scenario := &Scenario{
		Name:          "cancelled",
		Description:   "context already cancelled",
		Steps:         []Step{{None: true}},
		ExpectOutcome: OutcomeFailure,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, scenario)
	require.NoError(t, err)

	assert.True(t, result.Pass, "expectation errors: %v", result.Errors)
	assert.Contains(t, result.RunError, "CANCELLED")
	assert.Equal(t, 1, result.Undelivered)
}

func TestRun_Observer(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/chat_admin_toggle.yaml")
	require.NoError(t, err)

	var records []engine.Record
	observer := engine.ObserverFunc(func(_ context.Context, rec engine.Record) error {
		records = append(records, rec)
		return nil
	})

	_, err = Run(context.Background(), scenario, WithObserver(observer))
	require.NoError(t, err)

	kinds := make([]engine.RecordKind, 0, len(records))
	for _, rec := range records {
		assert.Equal(t, RunID(scenario), rec.Run)
		kinds = append(kinds, rec.Kind)
	}
	assert.Equal(t, []engine.RecordKind{
		engine.RecordJoined,
		engine.RecordRequest, engine.RecordReply, engine.RecordEvent,
		engine.RecordRequest, engine.RecordReply, engine.RecordEvent,
	}, kinds)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/chat_messages.yaml")
	require.NoError(t, err)

	first, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Render(), second.Render())
}

func TestResult_Render(t *testing.T) {
	r := NewResult()
	r.Transcript = []string{"REPLY 0 RESPONSE 1 OK"}
	r.Outcome = OutcomeFailure
	r.RunError = "CANCELLED: context canceled (run=x)"

	assert.Equal(t, "REPLY 0 RESPONSE 1 OK\nOUTCOME failure: CANCELLED: context canceled (run=x)\n", string(r.Render()))
}
