// Package logging defines the small logging contract shared by the document
// engine and its components. Components accept a Logger and default to Nop.
package logging

import (
	"context"
	"log/slog"
	"time"
)

// Level mirrors the slog severities used by the adapters.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Event describes one log record emitted by a component.
type Event struct {
	Level     Level
	Component string
	Message   string
	Fields    map[string]any
	Err       error
	Time      time.Time
}

// Logger records component events.
type Logger interface {
	Log(Event)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Event)

// Log implements Logger.
func (f LoggerFunc) Log(event Event) {
	if f != nil {
		f(event)
	}
}

type nopLogger struct{}

func (nopLogger) Log(Event) {}

// Nop returns a Logger that discards every event.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger, or Nop when logger is nil.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return nopLogger{}
	}
	return logger
}

// Slog forwards events to a *slog.Logger. A nil logger uses slog.Default.
func Slog(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogLogger{logger: logger}
}

type slogLogger struct {
	logger *slog.Logger
}

func (s slogLogger) Log(event Event) {
	attrs := make([]slog.Attr, 0, len(event.Fields)+2)
	if event.Component != "" {
		attrs = append(attrs, slog.String("component", event.Component))
	}
	for key, value := range event.Fields {
		attrs = append(attrs, slog.Any(key, value))
	}
	if event.Err != nil {
		attrs = append(attrs, slog.Any("error", event.Err))
	}
	s.logger.LogAttrs(context.Background(), toSlogLevel(event.Level), event.Message, attrs...)
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component binds a component name to a logger so call sites stay short.
type Component struct {
	Name   string
	Logger Logger
}

// Debug logs at debug level.
func (c Component) Debug(msg string, fields map[string]any) {
	c.emit(LevelDebug, msg, fields, nil)
}

// Info logs at info level.
func (c Component) Info(msg string, fields map[string]any) {
	c.emit(LevelInfo, msg, fields, nil)
}

// Warn logs at warn level, attaching err when non-nil.
func (c Component) Warn(msg string, fields map[string]any, err error) {
	c.emit(LevelWarn, msg, fields, err)
}

// Error logs at error level.
func (c Component) Error(msg string, fields map[string]any, err error) {
	c.emit(LevelError, msg, fields, err)
}

func (c Component) emit(level Level, msg string, fields map[string]any, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.Log(Event{
		Level:     level,
		Component: c.Name,
		Message:   msg,
		Fields:    fields,
		Err:       err,
		Time:      time.Now(),
	})
}
