package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerWith_TagsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithLevel("info", &buf)
	child := base.With("component", "headless")

	child.Info("PDF saved to %s", "esite.pdf")
	base.Info("untagged")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if assert.Len(t, lines, 2) {
		assert.Contains(t, lines[0], "PDF saved to esite.pdf")
		assert.Contains(t, lines[0], "component")
		assert.Contains(t, lines[0], "headless")
		assert.NotContains(t, lines[1], "headless")
	}
}

func TestNewLoggerWithLevel_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithLevel("warn", &buf)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warn("warn %d", 3)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "warn 3")
}

func TestNewLoggerWithLevel_UnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithLevel("chatty", &buf)

	l.Debug("hidden")
	l.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
