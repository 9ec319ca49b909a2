package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored by NewContext, or one wrapping the
// slog default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: ComponentApp}
}

// RequestLogger writes the per-request records of the API: one line per
// finished request and one per write that touched transactions.
type RequestLogger struct {
	base *Logger
}

func NewRequestLogger(base *Logger) *RequestLogger {
	return &RequestLogger{base: base}
}

func (rl *RequestLogger) from(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	if rl.base != nil {
		return rl.base
	}
	return FromContext(ctx)
}

// Finished logs a served request at info, warn for 4xx and error for 5xx.
func (rl *RequestLogger) Finished(ctx context.Context, r *http.Request, route string, status int, elapsed time.Duration, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithRequest(r, route).
		WithStatus(status, elapsed).
		WithClientIP(clientIP)
	rl.from(ctx).WithComponent(ComponentHTTP).Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

func (rl *RequestLogger) TransactionsWritten(ctx context.Context, operation string, ids ...int64) {
	fields := NewFields().
		WithOperation(operation).
		WithTransactions(ids...)
	rl.from(ctx).WithComponent(ComponentStorage).InfoContext(ctx, "Transactions written", fields.ToSlice()...)
}
