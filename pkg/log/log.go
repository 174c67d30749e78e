// Package log configures the process-wide slog logger.
package log

import (
	"io"
	"log/slog"
	"os"
)

func Setup(logLevel string, format string) {
	slog.SetDefault(slog.New(NewHandler(os.Stderr, logLevel, format)))
}

// NewHandler builds a text or JSON handler for the given level name.
func NewHandler(w io.Writer, logLevel string, format string) slog.Handler {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}

	return slog.NewTextHandler(w, opts)
}

func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
