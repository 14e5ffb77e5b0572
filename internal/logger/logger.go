package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a structured logger writing to w. DEBUG=true in the
// environment forces debug level and adds source locations.
func New(level, format string, w io.Writer) *slog.Logger {
	debug := os.Getenv("DEBUG") == "true"

	lvl := ParseLevel(level)
	if debug {
		lvl = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: debug,
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a config level name to slog.Level; unknown names are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
