package logging

import (
	"io"
	"log/slog"
	"strings"
)

// NewJSONLogger builds the process-wide structured logger. The caller
// picks the sink: the HTTP binaries log to stdout, while the MCP binary
// logs to stderr because the stdio transport owns its stdout.
func NewJSONLogger(out io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
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
