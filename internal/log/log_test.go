package log

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(LevelWarn)

	Info("hidden")
	Debug("hidden too")
	Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown k=v")
}

func TestErrorIncludesErrAndQuotesSpaces(t *testing.T) {
	buf := captureOutput(t)

	Error("load failed", errors.New("bad thing"), "path", "/tmp/x", "dangling")

	out := buf.String()
	assert.Contains(t, out, "[ERROR] load failed")
	assert.Contains(t, out, `err="bad thing"`)
	assert.Contains(t, out, "path=/tmp/x")
	assert.NotContains(t, out, "dangling")
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, LevelDebug, l)

	l, ok = ParseLevel("Warning")
	assert.True(t, ok)
	assert.Equal(t, LevelWarn, l)

	l, ok = ParseLevel("loud")
	assert.False(t, ok)
	assert.Equal(t, LevelInfo, l)
}
