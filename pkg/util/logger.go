package util

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger: human-readable text in development,
// JSON everywhere else. The service name is attached to every record so the
// server and worker logs can be told apart in aggregation.
func NewLogger(env, service string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if env == "development" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With("service", service)
}
