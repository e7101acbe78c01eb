package logging

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

type Field struct {
	Key   string
	Value any
}

func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

func Err(err error) Field {
	if err == nil {
		return Field{Key: "err", Value: nil}
	}
	return Field{Key: "err", Value: err.Error()}
}

// Logger writes structured lines. Implementations are safe for concurrent
// use; loggers derived with With share the parent's output.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Enabled(level Level) bool
}

type Option func(*sink)

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *sink) {
		if now != nil {
			s.now = now
		}
	}
}

// sink is the output shared by a logger and everything derived from it.
type sink struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func (s *sink) write(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.out.Write(line)
}

type logfmtLogger struct {
	sink   *sink
	level  Level
	fields []Field
}

// New returns a logfmt logger writing lines at or above level to out.
func New(out io.Writer, level Level, opts ...Option) Logger {
	if out == nil {
		out = os.Stdout
	}
	s := &sink{out: out, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return &logfmtLogger{sink: s, level: level}
}

func Nop() Logger {
	return &logfmtLogger{sink: &sink{out: io.Discard, now: time.Now}, level: Error + 1}
}

// OrNop returns logger, or a discarding logger when logger is nil.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

// Component tags every line written through the returned logger.
func Component(logger Logger, name string) Logger {
	return OrNop(logger).With(F("component", name))
}

func (l *logfmtLogger) Enabled(level Level) bool {
	return l != nil && level >= l.level
}

func (l *logfmtLogger) With(fields ...Field) Logger {
	if l == nil {
		return Nop()
	}
	return &logfmtLogger{
		sink:   l.sink,
		level:  l.level,
		fields: append(append([]Field{}, l.fields...), fields...),
	}
}

func (l *logfmtLogger) Debug(msg string, fields ...Field) { l.log(Debug, msg, fields) }
func (l *logfmtLogger) Info(msg string, fields ...Field)  { l.log(Info, msg, fields) }
func (l *logfmtLogger) Warn(msg string, fields ...Field)  { l.log(Warn, msg, fields) }
func (l *logfmtLogger) Error(msg string, fields ...Field) { l.log(Error, msg, fields) }

func (l *logfmtLogger) log(level Level, msg string, fields []Field) {
	if !l.Enabled(level) {
		return
	}
	var b strings.Builder
	writePair(&b, "ts", l.sink.now().UTC().Format(time.RFC3339Nano))
	b.WriteByte(' ')
	writePair(&b, "level", level.String())
	b.WriteByte(' ')
	writePair(&b, "msg", msg)
	for _, group := range [][]Field{l.fields, fields} {
		for _, field := range group {
			b.WriteByte(' ')
			writePair(&b, field.Key, formatValue(field.Value))
		}
	}
	b.WriteByte('\n')
	l.sink.write([]byte(b.String()))
}

func writePair(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(quoteIfNeeded(value))
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return v.Round(time.Microsecond).String()
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func quoteIfNeeded(value string) string {
	if value == "" {
		return `""`
	}
	if value == "null" {
		return value
	}
	if strings.ContainsAny(value, " \t\n\r\"=") {
		return strconv.Quote(value)
	}
	return value
}

// NewConnectionID returns a short random id used to correlate the log lines
// of one feed connection.
func NewConnectionID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:6])
}
