// Package observability provides the structured logger and terminal status
// output used across the CLI.
package observability

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the console logger. Verbose mode lowers the level to
// debug; otherwise only info and above is shown.
func NewLogger(out io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
