// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestNew_FiltersByLevelWithoutColour(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn", IsTerminal(&buf))
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("source file doesn't exist", "path", "a.txt")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "source file doesn't exist")
	assert.Contains(t, out, "path=a.txt")
	assert.NotContains(t, out, "\x1b[", "buffers are not terminals")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestNew_Colour(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", true)
	require.NoError(t, err)

	logger.Error("copy file failed")
	assert.Contains(t, buf.String(), "\x1b[")
}
