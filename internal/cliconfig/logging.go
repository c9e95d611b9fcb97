package cliconfig

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/linkarq/pkg/log"
)

// LevelOf parses a log level name. Empty means info.
func LevelOf(level string) (zerolog.Level, error) {
	return log.ParseLevel(level)
}

// Logger returns the CLI logger: human-readable output on stderr with
// RFC3339 timestamps.
func Logger(level string) (zerolog.Logger, error) {
	return NewLogger(os.Stderr, level)
}

// NewLogger is Logger writing to w.
func NewLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := LevelOf(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger(), nil
}
