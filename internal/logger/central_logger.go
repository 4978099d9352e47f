package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// traceLevelValue sits below slog.LevelDebug (-4).
const traceLevelValue = slog.Level(-8)

// CentralLogger owns the output handlers and the per-module levels. All
// loggers handed out by Module write through it.
type CentralLogger struct {
	handler slog.Handler
	levels  map[string]slog.Level

	mu   sync.Mutex
	file *os.File
}

// NewCentralLogger builds the console and file outputs described by cfg.
// With neither enabled it writes text to stderr at the default level.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	tz, err := loadTimezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	cl := &CentralLogger{levels: make(map[string]slog.Level, len(cfg.ModuleLevels))}
	for module, level := range cfg.ModuleLevels {
		cl.levels[module] = parseLogLevel(level)
	}

	var outputs []slog.Handler
	if cfg.Console.Enabled {
		outputs = append(outputs, newTextHandler(os.Stderr, parseLogLevel(cfg.Console.Level), tz))
	}
	if fo := cfg.FileOutput; fo != nil && fo.Enabled {
		f, err := openLogFile(fo.Path)
		if err != nil {
			return nil, err
		}
		cl.file = f
		outputs = append(outputs, newJSONHandler(f, parseLogLevel(fo.Level), tz))
	}

	switch len(outputs) {
	case 0:
		cl.handler = newTextHandler(os.Stderr, parseLogLevel(cfg.DefaultLevel), tz)
	case 1:
		cl.handler = outputs[0]
	default:
		cl.handler = newMultiHandler(outputs...)
	}
	return cl, nil
}

func loadTimezone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", name, err)
	}
	return tz, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Module returns a logger for the named module.
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}
	return &scopedLogger{
		central: cl,
		module:  name,
		out:     slog.New(cl.handler),
		level:   cl.levelFor(name),
	}
}

// levelFor returns the configured level of module or its closest
// configured parent. Unconfigured modules pass everything and leave the
// filtering to the handlers.
func (cl *CentralLogger) levelFor(module string) slog.Level {
	for name := module; name != ""; {
		if level, ok := cl.levels[name]; ok {
			return level
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return traceLevelValue
}

// Flush syncs the log file.
func (cl *CentralLogger) Flush() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.file == nil {
		return nil
	}
	return cl.file.Sync()
}

// Close closes the log file. Records logged afterwards to a file output
// are dropped with a write error inside slog.
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.file == nil {
		return nil
	}
	err := cl.file.Close()
	cl.file = nil
	return err
}

var (
	globalMu sync.Mutex
	global   *CentralLogger
)

// SetGlobal installs cl as the logger returned by Global.
func SetGlobal(cl *CentralLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = cl
}

// Global returns the installed logger. Before SetGlobal it is a text
// logger on stderr at info level.
func Global() *CentralLogger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = &CentralLogger{
			handler: newTextHandler(os.Stderr, slog.LevelInfo, time.Local),
			levels:  map[string]slog.Level{},
		}
	}
	return global
}

// scopedLogger is the Logger handed out by CentralLogger.Module and
// NewSlogLogger.
type scopedLogger struct {
	central *CentralLogger // nil for NewSlogLogger
	module  string
	out     *slog.Logger
	level   slog.Level
	fields  []Field
}

// NewSlogLogger returns a Logger writing text to w without a
// CentralLogger. Tests use it with a buffer.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if w == nil {
		w = io.Discard
	}
	if tz == nil {
		tz = time.UTC
	}
	l := parseSlogLevel(level)
	return &scopedLogger{out: slog.New(newTextHandler(w, l, tz)), level: l}
}

func (s *scopedLogger) Module(name string) Logger {
	if s == nil {
		return nil
	}
	module := name
	if s.module != "" {
		module = s.module + "." + name
	}
	level := s.level
	if s.central != nil {
		level = s.central.levelFor(module)
	}
	return &scopedLogger{
		central: s.central,
		module:  module,
		out:     s.out,
		level:   level,
		fields:  slices.Clone(s.fields),
	}
}

func (s *scopedLogger) With(fields ...Field) Logger {
	if s == nil {
		return nil
	}
	next := *s
	next.fields = slices.Concat(s.fields, fields)
	return &next
}

func (s *scopedLogger) WithContext(ctx context.Context) Logger {
	if s == nil {
		return nil
	}
	if id := TraceID(ctx); id != "" {
		return s.With(String(traceIDKey, id))
	}
	return s
}

func (s *scopedLogger) Trace(msg string, fields ...Field) { s.emit(traceLevelValue, msg, fields) }
func (s *scopedLogger) Debug(msg string, fields ...Field) { s.emit(slog.LevelDebug, msg, fields) }
func (s *scopedLogger) Info(msg string, fields ...Field)  { s.emit(slog.LevelInfo, msg, fields) }
func (s *scopedLogger) Warn(msg string, fields ...Field)  { s.emit(slog.LevelWarn, msg, fields) }

// Error is never filtered by the module level.
func (s *scopedLogger) Error(msg string, fields ...Field) {
	if s != nil {
		s.write(slog.LevelError, msg, fields)
	}
}

func (s *scopedLogger) Log(level LogLevel, msg string, fields ...Field) {
	s.emit(parseSlogLevel(level), msg, fields)
}

// Flush is a no-op; the CentralLogger owns the file.
func (s *scopedLogger) Flush() error { return nil }

func (s *scopedLogger) emit(level slog.Level, msg string, fields []Field) {
	if s == nil || level < s.level {
		return
	}
	s.write(level, msg, fields)
}

func (s *scopedLogger) write(level slog.Level, msg string, fields []Field) {
	attrs := make([]slog.Attr, 0, 1+len(s.fields)+len(fields))
	if s.module != "" {
		attrs = append(attrs, slog.String(moduleKey, s.module))
	}
	for _, f := range s.fields {
		attrs = append(attrs, f.attr())
	}
	for _, f := range fields {
		attrs = append(attrs, f.attr())
	}
	s.out.LogAttrs(context.Background(), level, msg, attrs...)
}
