package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type logEntry map[string]interface{}

func decodeLines(t *testing.T, buf *bytes.Buffer) []logEntry {
	t.Helper()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e logEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestInitWriter_JSONLines(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, InitWriter(buf, Options{Level: "debug"}))
	t.Cleanup(Close)

	Info("iteration %d/%d", 1, 3)
	Error("call failed: %s", "boom")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	require.Equal(t, "info", entries[0]["level"])
	require.Equal(t, "iteration 1/3", entries[0]["message"])
	require.Equal(t, "error", entries[1]["level"])
	require.Equal(t, "call failed: boom", entries[1]["message"])
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, InitWriter(buf, Options{Level: "warn"}))
	t.Cleanup(Close)

	Debug("hidden")
	Info("hidden")
	Warn("shown")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	require.Equal(t, "shown", entries[0]["message"])

	require.NoError(t, SetLevel("debug"))
	Debug("now visible")
	require.Len(t, decodeLines(t, buf), 2)
}

func TestInitWriter_InvalidLevel(t *testing.T) {
	require.Error(t, InitWriter(&bytes.Buffer{}, Options{Level: "chatty"}))
}

func TestInitWriter_HumanReadable(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, InitWriter(buf, Options{Level: "info", HumanReadable: true}))
	t.Cleanup(Close)

	Info("iteration %d done", 3)

	line := buf.String()
	require.Contains(t, line, "INF")
	require.Contains(t, line, "iteration 3 done")
	require.False(t, strings.HasPrefix(line, "{"), "console layout, not JSON: %q", line)
}

func TestWith_AddsFields(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, InitWriter(buf, Options{}))
	t.Cleanup(Close)

	l := With(map[string]interface{}{"run_id": "abc", "iteration": 2})
	l.Info().Msg("started")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	require.Equal(t, "abc", entries[0]["run_id"])
	require.Equal(t, float64(2), entries[0]["iteration"])
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runner.log")
	require.NoError(t, Init(path, Options{}))

	Info("hello %s", "file")
	Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello file")
}

func TestClose_SilencesLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, InitWriter(buf, Options{}))
	Close()

	Info("dropped")
	require.Empty(t, buf.String())
}
