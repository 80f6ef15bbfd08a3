package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New builds the process logger. Output is human readable when stdout is a
// terminal and JSON lines otherwise.
func New(level string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if isatty.IsTerminal(os.Stdout.Fd()) {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	return NewWithWriter(level, out)
}

func NewWithWriter(level string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Mask shortens an identifier (payment session, client id) so it can be
// correlated in logs without exposing the full token. The head keeps the
// id's kind (cs_live_, cs_test_) and the tail tells ids of one kind apart.
func Mask(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	const head, tail = 8, 4
	if len(id) <= head+tail {
		return strings.Repeat("*", len(id))
	}
	return id[:head] + "..." + id[len(id)-tail:]
}
