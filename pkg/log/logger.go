// Package log provides a structured logging system for inferq services.
package log

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Fields is a map of field names to values.
type Fields map[string]interface{}

// ComponentKey tags log lines with the emitting component.
const ComponentKey = "component"

// Entry represents a single log entry.
type Entry struct {
	Level     Level
	Message   string
	Fields    Fields
	Timestamp time.Time
	Caller    string
}

// Logger defines the core logging interface.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// Fatal logs at FatalLevel and exits the process with status 1.
	Fatal(msg string, fields ...Field)

	// With returns a child logger carrying the given fields on every entry.
	With(fields ...Field) Logger
	// WithComponent tags logs with a component name.
	WithComponent(component string) Logger
	// WithError attaches err under the "error" key.
	WithError(err error) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// Formatter defines the interface for formatting log entries.
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// Output defines the interface for log outputs.
type Output interface {
	Write(entry *Entry, formattedEntry []byte) error
	Close() error
}

// LoggerOption is a function that configures a logger.
type LoggerOption func(*BaseLogger)

// core is shared by a logger and all children derived through With.
type core struct {
	level     atomic.Int32
	formatter Formatter
	outputs   []Output
	mu        sync.Mutex
}

// BaseLogger implements the Logger interface.
type BaseLogger struct {
	core       *core
	handler    *bridgeHandler
	slogLogger *slog.Logger
}

// NewLogger creates a new logger with the given options.
func NewLogger(options ...LoggerOption) Logger {
	logger := &BaseLogger{core: &core{formatter: &JSONFormatter{}}}
	logger.core.level.Store(int32(InfoLevel))

	for _, option := range options {
		option(logger)
	}

	if len(logger.core.outputs) == 0 {
		logger.core.outputs = append(logger.core.outputs, NewConsoleOutput())
	}

	if logger.handler == nil {
		logger.handler = newBridgeHandler(logger.core)
	}
	logger.slogLogger = slog.New(logger.handler)
	return logger
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) LoggerOption {
	return func(l *BaseLogger) {
		l.core.level.Store(int32(level))
	}
}

// WithFormatter sets the log formatter.
func WithFormatter(formatter Formatter) LoggerOption {
	return func(l *BaseLogger) {
		l.core.formatter = formatter
	}
}

// WithOutput adds an output to the logger.
func WithOutput(output Output) LoggerOption {
	return func(l *BaseLogger) {
		l.core.outputs = append(l.core.outputs, output)
	}
}

// WithRedactions replaces the values of the given keys with a placeholder.
func WithRedactions(keys ...string) LoggerOption {
	return func(l *BaseLogger) {
		if l.handler == nil {
			l.handler = newBridgeHandler(l.core)
		}
		l.handler = l.handler.withRedactions(keys)
	}
}

// WithSampling keeps the first initial entries per (level, message) and then
// one of every thereafter.
func WithSampling(initial, thereafter int) LoggerOption {
	return func(l *BaseLogger) {
		if l.handler == nil {
			l.handler = newBridgeHandler(l.core)
		}
		l.handler = l.handler.withSampler(initial, thereafter)
	}
}

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	if Level(l.core.level.Load()) > level {
		return
	}
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrsFromFieldSlice(fields)...)
}

func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *BaseLogger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *BaseLogger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields)
	os.Exit(1)
}

func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &BaseLogger{
		core:       l.core,
		handler:    l.handler,
		slogLogger: l.slogLogger.With(attrsToAny(attrsFromFieldSlice(fields))...),
	}
}

func (l *BaseLogger) WithComponent(component string) Logger { return l.With(Component(component)) }

func (l *BaseLogger) WithError(err error) Logger { return l.With(Err(err)) }

func (l *BaseLogger) SetLevel(level Level) { l.core.level.Store(int32(level)) }

func (l *BaseLogger) GetLevel() Level { return Level(l.core.level.Load()) }

// Slog exposes the underlying slog.Logger for libraries that accept one.
func (l *BaseLogger) Slog() *slog.Logger { return l.slogLogger }
