// Package logging owns the process-wide structured logger. Everything logs
// to stderr; stdout is reserved for the interactive session prompt.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

var (
	level  slog.LevelVar
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))
)

// Init sets the verbosity from the --log-level flag and installs the logger
// as the slog default, so SDK internals using slog land in the same stream.
func Init(levelName string) {
	level.Set(ParseLevel(levelName))
	slog.SetDefault(logger)
}

// ParseLevel maps a flag value onto a slog level. Unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	return logger
}

func Debug(msg string, args ...any) { logger.Debug(msg, args...) }
func Info(msg string, args ...any)  { logger.Info(msg, args...) }
func Warn(msg string, args ...any)  { logger.Warn(msg, args...) }
func Error(msg string, args ...any) { logger.Error(msg, args...) }
