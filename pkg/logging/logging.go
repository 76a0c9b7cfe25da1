// Package logging configures the process-wide structured logger.
//
// byn logs with log/slog throughout. This package owns the mapping
// from user-facing level names to slog levels and installs the
// default handler once at startup.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a flag or config value to a slog level. Unknown
// values fall back to warn so a typo never silences errors.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Init installs a text handler writing to output as the default
// logger and returns it. Call once at startup, before any component
// captures slog.Default().
func Init(output io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}
