// Package logger is the structured logging sink of fluentdb, backed by log/slog.
package logger

import "log/slog"

// Logger receives structured key-value records from the connection manager,
// the health checker and the execution path.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// With returns a Logger that adds args to every record.
	With(args ...any) Logger
}

// New wraps an slog.Logger. A nil logger discards everything.
func New(l *slog.Logger) Logger {
	if l == nil {
		return Discard
	}
	return &SlogAdapter{logger: l}
}

// Discard drops every record.
var Discard Logger = NoopLogger{}

// NoopLogger discards everything. It is the default when no logger is configured.
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...any) {}
func (NoopLogger) Info(string, ...any)  {}
func (NoopLogger) Warn(string, ...any)  {}
func (NoopLogger) Error(string, ...any) {}

func (n NoopLogger) With(...any) Logger { return n }

// SlogAdapter forwards records to an slog.Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

func (a *SlogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *SlogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *SlogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *SlogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }

func (a *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{logger: a.logger.With(args...)}
}
