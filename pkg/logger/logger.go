package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes structured events. Messages are short kebab-case event
// names; everything variable goes into fields.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string // trace, debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or a file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat
	zerolog.DurationFieldUnit = time.Millisecond
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().CallerWithSkipFrameCount(4).Logger()
	return &Logger{zl: zl}, nil
}

func openOutput(target string) (io.Writer, error) {
	switch target {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that always carries the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.context(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { emit(l.zl.Debug(), msg, fields) }

func (l *Logger) Info(msg string, fields ...Field) { emit(l.zl.Info(), msg, fields) }

func (l *Logger) Warn(msg string, fields ...Field) { emit(l.zl.Warn(), msg, fields) }

func (l *Logger) Error(msg string, fields ...Field) { emit(l.zl.Error(), msg, fields) }

func emit(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		e = f.event(e)
	}
	e.Msg(msg)
}

// Field is one key/value pair. Build it with the typed constructors below.
type Field struct {
	key   string
	value interface{}
}

func (f Field) event(e *zerolog.Event) *zerolog.Event {
	switch v := f.value.(type) {
	case nil:
		return e
	case string:
		return e.Str(f.key, v)
	case int:
		return e.Int(f.key, v)
	case int64:
		return e.Int64(f.key, v)
	case float64:
		return e.Float64(f.key, v)
	case bool:
		return e.Bool(f.key, v)
	case time.Time:
		return e.Time(f.key, v)
	case time.Duration:
		return e.Dur(f.key, v)
	case []string:
		return e.Strs(f.key, v)
	case error:
		return e.AnErr(f.key, v)
	}
	return e.Interface(f.key, f.value)
}

func (f Field) context(c zerolog.Context) zerolog.Context {
	switch v := f.value.(type) {
	case nil:
		return c
	case string:
		return c.Str(f.key, v)
	case int:
		return c.Int(f.key, v)
	case int64:
		return c.Int64(f.key, v)
	case bool:
		return c.Bool(f.key, v)
	case error:
		return c.AnErr(f.key, v)
	}
	return c.Interface(f.key, f.value)
}

func String(key, value string) Field { return Field{key, value} }

func Strings(key string, value []string) Field { return Field{key, value} }

func Int(key string, value int) Field { return Field{key, value} }

func Int64(key string, value int64) Field { return Field{key, value} }

func Float64(key string, value float64) Field { return Field{key, value} }

func Bool(key string, value bool) Field { return Field{key, value} }

func Time(key string, value time.Time) Field { return Field{key, value} }

// Duration is rendered in milliseconds.
func Duration(key string, value time.Duration) Field { return Field{key, value} }

func Any(key string, value interface{}) Field { return Field{key, value} }

// Error logs err under "error". A nil err adds nothing.
func Error(err error) Field {
	if err == nil {
		return Field{key: zerolog.ErrorFieldName}
	}
	return Field{zerolog.ErrorFieldName, err}
}
