// Package logging builds the structured loggers used across the api and
// worker binaries.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a logger writing to stdout, tagged with the service name.
// Format is "json" (default) or "text" for local development.
func New(service, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("service", service)
}

// NewJSONLogger keeps the common case short.
func NewJSONLogger(service, level string) *slog.Logger {
	return New(service, level, "json")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
