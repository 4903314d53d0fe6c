// Package logger builds the zerolog loggers used across xirrcalc. Output
// goes to stderr by default so the rendered report and the JSON API keep
// stdout to themselves.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level  string    // debug, info, warn, error; anything else means info
	Pretty bool      // human-readable console lines instead of JSON
	Writer io.Writer // defaults to os.Stderr
}

// New creates a structured logger and sets the process-wide level.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Writer
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Logger()
}

// SetGlobalLogger routes the zerolog/log package-level logger through l so
// that anything logging via the global ends up in the same stream.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
