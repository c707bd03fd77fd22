package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel_LongAndShortForms(t *testing.T) {
	cases := map[string]slog.Level{
		"t": LevelTrace, "trace": LevelTrace,
		"d": slog.LevelDebug, "debug": slog.LevelDebug,
		"i": slog.LevelInfo, "info": slog.LevelInfo, "": slog.LevelInfo,
		"w": slog.LevelWarn, "WARN": slog.LevelWarn,
		"e": slog.LevelError, "error": slog.LevelError,
		"f": LevelFatal, "fatal": LevelFatal,
	}
	for raw, want := range cases {
		got, err := ParseLevel(raw)
		require.NoError(t, err, "level %q", raw)
		assert.Equal(t, want, got, "level %q", raw)
	}
}

func TestParseLevel_Unknown(t *testing.T) {
	_, err := ParseLevel("verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verbose")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestNew_RendersCustomLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelTrace, FormatText)

	Trace(l, "polled event")
	Fatal(l, "shut down")

	out := buf.String()
	assert.Contains(t, out, "level=TRACE")
	assert.Contains(t, out, "level=FATAL")
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo, FormatJSON)

	Trace(l, "hidden")
	l.Debug("hidden too")
	l.Info("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
}

func TestComponent_AddsAttribute(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(&buf, slog.LevelInfo, FormatText), "executor")
	l.Info("started")
	assert.Contains(t, buf.String(), "component=executor")
}
