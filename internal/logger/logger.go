// Package logger builds zerolog loggers and carries them through contexts.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// New creates a logger on stderr at level. Unknown levels fall back to info.
// jsonOutput switches the human console format for one JSON object per line.
func New(level string, jsonOutput bool) zerolog.Logger {
	var out io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	if jsonOutput {
		out = os.Stderr
	}
	return NewWithWriter(out).Level(ParseLevel(level))
}

// NewWithWriter logs JSON lines to w with timestamps and callers. Tests use it
// with a buffer.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(level)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

func WithContext(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the request logger, or an info-level console logger
// when none was attached.
func FromContext(ctx context.Context) zerolog.Logger {
	if log, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return log
	}
	return New("info", false)
}

// WithFields returns a child of log carrying every entry of fields.
func WithFields(log zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	child := log.With()
	for k, v := range fields {
		child = child.Interface(k, v)
	}
	return child.Logger()
}
