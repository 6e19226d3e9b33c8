package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewZerolog builds the zerolog.Logger used by the infrastructure managers
// (database, telemetry). Output goes to file when given, else to a console
// writer on stdout.
func NewZerolog(file io.Writer, level, component string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer
	if file != nil {
		out = file
	} else {
		out = zerolog.ConsoleWriter{Out: osStdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
