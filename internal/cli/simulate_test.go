package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata/scenarios"

func TestSimulate_AllScenariosPass(t *testing.T) {
	stdout, stderr, code := execute(t, "simulate", scenariosDir)
	require.Equal(t, ExitSuccess, code, "stderr: %s", stderr)

	assert.Contains(t, stdout, "✓ chat_admin_toggle")
	assert.Contains(t, stdout, "✓ unknown_service_fatal")
	assert.Contains(t, stdout, "0 failed")
}

func TestSimulate_Filter(t *testing.T) {
	stdout, _, code := execute(t, "simulate", scenariosDir, "--filter", "unknown_*")
	require.Equal(t, ExitSuccess, code)

	assert.Contains(t, stdout, "✓ unknown_service_close")
	assert.NotContains(t, stdout, "chat_admin_toggle")
	assert.Contains(t, stdout, "2 passed, 0 failed, 2 total")
}

func TestSimulate_SingleFileJSON(t *testing.T) {
	stdout, _, code := execute(t, "simulate", filepath.Join(scenariosDir, "stop_ends_run.yaml"), "--format", "json")
	require.Equal(t, ExitSuccess, code)

	var resp struct {
		Status string         `json:"status"`
		Data   SimulateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "stop_ends_run", resp.Data.Scenarios[0].Name)
	assert.Equal(t, "success", resp.Data.Scenarios[0].Outcome)
	assert.Equal(t, []string{
		"REPLY 0 RESPONSE 1 OK",
		"BROADCAST EVENT Chat MESSAGE_FROM 0 before",
	}, resp.Data.Scenarios[0].Transcript)
}

func TestSimulate_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong.yaml"), []byte(`
name: wrong
description: expects a KO that never comes
steps:
  - request: { actor: 0, text: "REQUEST 1 Chat hi" }
expect:
  - REPLY 0 RESPONSE 1 KO nope
`), 0o644))

	stdout, stderr, code := execute(t, "simulate", dir)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "✗ wrong")
	assert.Contains(t, stdout, `expected "REPLY 0 RESPONSE 1 KO nope"`)
	assert.Contains(t, stderr, "1 of 1 scenarios failed")
}

func TestSimulate_BadScenarioFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "typo.yaml"), []byte("name: typo\ndescriptoin: x\n"), 0o644))

	stdout, _, code := execute(t, "simulate", dir)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "failed to load scenario")
}

func TestSimulate_MissingPath(t *testing.T) {
	_, stderr, code := execute(t, "simulate", filepath.Join(t.TempDir(), "absent"))
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "failed to find scenarios")
}

func TestSimulate_NoArgs(t *testing.T) {
	_, _, code := execute(t, "simulate")
	assert.Equal(t, ExitUsage, code)
}

func TestSimulate_EmptyDir(t *testing.T) {
	stdout, _, code := execute(t, "simulate", t.TempDir())
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "No scenarios found.")
}
