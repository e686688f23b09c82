// Package telemetry wires up structured logging for gmcsim, matching
// tobyjaguar-mini-world/cmd/worldsim/main.go's log/slog setup: a single
// default logger configured once at startup, text or JSON, used
// throughout the rest of the module via slog's package-level functions.
package telemetry

import (
	"log/slog"
	"os"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Setup installs the process-wide default logger and returns it.
func Setup(level slog.Level, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a CLI-supplied level name to a slog.Level, defaulting to
// Info on an unrecognized value rather than failing the whole run over a
// logging preference.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
