package logging

import (
	"context"
	"log/slog"
)

// SlogLogger adapts log/slog to the Logger interface. Both the CLI and the
// background workers (liveness monitor, live query watchers) log through it.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps an slog.Logger. Handler choice (text vs JSON, level)
// stays with the caller.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

// With returns a child logger carrying the given key-value pairs, e.g. the
// account id for everything a session does.
func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}
