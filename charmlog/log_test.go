package charmlog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Options{Writer: &buf, Level: "WARN"})

	l.Info("hidden")
	l.Warn("queued request", "pending", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "queued request")
	assert.Contains(t, out, "pending=3")
}

func TestNewLoggerBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Options{Writer: &buf, Level: "chatty"})

	l.Debug("hidden")
	l.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "calygo.log")

	f, err := OpenFile(path)
	require.NoError(t, err)
	l := NewLogger(Options{Writer: f, Level: "DEBUG"})
	l.Debug("first")
	require.NoError(t, f.Close())

	f, err = OpenFile(path)
	require.NoError(t, err)
	NewLogger(Options{Writer: f, Level: "DEBUG"}).Debug("second")
	require.NoError(t, f.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "first")
	assert.Contains(t, string(b), "second")
}
