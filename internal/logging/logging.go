// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// New creates a logger writing to w at the configured level. Format
// "console" (the default) produces human-readable lines; "json" produces one
// JSON object per line.
func New(cfg types.LoggingConfig, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	out := w
	switch strings.ToLower(cfg.Format) {
	case "json":
	default:
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: !isTerminal(w)}
	}

	return zerolog.New(out).With().Timestamp().Logger().Level(ParseLevel(cfg.Level))
}

// isTerminal reports whether w is a file attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ParseLevel converts a level name to zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// WithSubscription adds subscription fields to a logger.
func WithSubscription(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("subscription", name).Logger()
}

// WithPaper adds paper fields to a logger.
func WithPaper(log zerolog.Logger, externalID string) zerolog.Logger {
	return log.With().Str("external_id", externalID).Logger()
}
