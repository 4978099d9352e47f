// Package logger is the structured logging layer of gpacalc. It wraps
// log/slog with module scoping, typed fields and per-module levels.
//
// A CentralLogger is built from LoggingConfig once at startup and installed
// with SetGlobal. Packages then take a scoped logger from it:
//
//	log := logger.Global().Module("store")
//	log.Info("Flushed pending writes", logger.String("key", "subjects"))
//
// Scopes nest with dots, so Module("kvstore").Module("gorm") logs as
// module=kvstore.gorm and takes its level from "kvstore.gorm", or from
// "kvstore" when only the parent is configured.
//
// Console output is text without timestamps. File output is JSON with
// RFC3339 timestamps in the configured timezone.
package logger

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// LogLevel names a severity as it appears in configuration.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger is what packages log through. Implementations are safe for
// concurrent use and nil-safe on the receiver side.
type Logger interface {
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Log(level LogLevel, msg string, fields ...Field)

	// With returns a logger that adds fields to every record.
	With(fields ...Field) Logger
	// WithContext returns a logger tagged with the context's trace id.
	WithContext(ctx context.Context) Logger

	Flush() error
}

// Field is one key/value pair of a record.
type Field struct {
	Key   string
	Value any
}

const (
	errorKey   = "error"
	moduleKey  = "module"
	traceIDKey = "trace_id"
)

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

// Float64 values are written with three decimals, the precision results
// are shown with.
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Duration values are written rounded to the millisecond, e.g. "300ms".
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

func Time(key string, value time.Time) Field { return Field{Key: key, Value: value} }

func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Error stores err's message under "error". A nil err gives a nil value.
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// attr converts a field for slog.
func (f Field) attr() slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, math.Round(v*1000)/1000)
	case bool:
		return slog.Bool(f.Key, v)
	case time.Time:
		return slog.Time(f.Key, v)
	case time.Duration:
		return slog.String(f.Key, v.Round(time.Millisecond).String())
	}
	return slog.Any(f.Key, f.Value)
}

type traceIDContextKey struct{}

// TraceIDKey is the context key WithTraceID stores under.
var TraceIDKey = traceIDContextKey{}

// WithTraceID returns ctx carrying id. Sessions use their id as trace id.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TraceIDKey, id)
}

// TraceID returns the trace id stored in ctx, or "".
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}
