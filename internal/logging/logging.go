// Package logging configures the zerolog logger shared across the service.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing to w (or a colorized console writer
// over stderr when w is nil and stderr is a terminal), at the given level
// ("debug", "info", "warn", "error"; invalid or empty defaults to "info").
func New(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// NewSilent returns a logger that discards all output — used by the hook
// invocation surface's fallback path, where stdout must stay clean and any
// internal error is swallowed per the silent-on-failure contract.
func NewSilent() zerolog.Logger {
	return zerolog.New(io.Discard)
}
