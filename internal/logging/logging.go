package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
)

// New builds the root logger. format is "console" for human-readable output,
// anything else writes JSON lines.
func New(level, format string, out io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if out == nil {
		out = os.Stderr
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// NonBlocking wraps w so that writes never stall the caller; lines are dropped
// when the buffer is full. Close the returned writer to flush on shutdown.
func NonBlocking(w io.Writer, onDrop func(missed int)) diode.Writer {
	return diode.NewWriter(w, 1000, 10*time.Millisecond, onDrop)
}
