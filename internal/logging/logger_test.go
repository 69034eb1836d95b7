package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestInitControlsVerbosity(t *testing.T) {
	defer Init("info")

	Init("error")
	assert.False(t, Logger().Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, Logger().Enabled(context.Background(), slog.LevelError))

	Init("debug")
	assert.True(t, Logger().Enabled(context.Background(), slog.LevelDebug))
}
