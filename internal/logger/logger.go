package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func init() {
	// Default to JSON handler for structured logs. stdout belongs to Singer state.
	slog.SetDefault(New(os.Stderr, "info", "json"))
}

// New builds a logger writing to w with the given level and format (json|text).
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// SetLogger installs l as the process default, so code falling back to
// slog.Default() logs with the configured level and format.
func SetLogger(l *slog.Logger) {
	slog.SetDefault(l)
}
