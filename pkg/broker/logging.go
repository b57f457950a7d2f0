package broker

import (
	"io"

	"github.com/rs/zerolog"
)

// Level is the broker's own leveled-logging vocabulary, kept independent
// of zerolog.Level so callers configuring a broker never need to import
// zerolog themselves.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is a thin, structured-field wrapper around zerolog.Logger that
// keeps the leveled Debug/Info/Warn/Error method shape this codebase's
// logging has always had, backed by the real dependency instead of a
// hand-rolled *log.Logger.
type Logger struct {
	z zerolog.Logger
}

// NewLogger constructs a Logger writing to out at the given level.
func NewLogger(out io.Writer, level Level) *Logger {
	z := zerolog.New(out).With().Timestamp().Logger().Level(level.zerolog())
	return &Logger{z: z}
}

// NewNopLogger discards everything; used as the broker's default so tests
// and library embedders don't get stdout noise unless they opt in.
func NewNopLogger() *Logger {
	return NewLogger(io.Discard, ErrorLevel)
}

// SetLevel adjusts the minimum level logged.
func (l *Logger) SetLevel(level Level) {
	l.z = l.z.Level(level.zerolog())
}

// SetOutput redirects where log lines are written.
func (l *Logger) SetOutput(w io.Writer) {
	l.z = l.z.Output(w)
}

// event is the shared helper every leveled method routes through,
// attaching the structured fields the caller passes.
func (l *Logger) event(level zerolog.Level, msg string, fields map[string]any) {
	e := l.z.WithLevel(level)
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}

func (l *Logger) Debug(msg string, fields map[string]any) { l.event(zerolog.DebugLevel, msg, fields) }
func (l *Logger) Info(msg string, fields map[string]any)  { l.event(zerolog.InfoLevel, msg, fields) }
func (l *Logger) Warn(msg string, fields map[string]any)  { l.event(zerolog.WarnLevel, msg, fields) }
func (l *Logger) Error(msg string, fields map[string]any) { l.event(zerolog.ErrorLevel, msg, fields) }
