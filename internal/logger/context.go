package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

// fallback is returned by FromContext when the context carries no logger.
// It is never reassigned.
//
//nolint:gochecknoglobals // Immutable default used only by callers that skipped ToContext.
var fallback = New(zap.NewAtomicLevelAt(defaultLevel))

// ToContext returns a copy of ctx that carries l.
func ToContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored in ctx, or the fallback logger.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx == nil {
		return fallback
	}

	if l, ok := ctx.Value(contextKey{}).(*zap.SugaredLogger); ok && l != nil {
		return l
	}

	return fallback
}

// WithName adds a name segment to the logger stored in ctx.
func WithName(ctx context.Context, name string) context.Context {
	return ToContext(ctx, FromContext(ctx).Named(name))
}

// WithKV attaches key-value pairs to every message logged through ctx.
func WithKV(ctx context.Context, kvs ...any) context.Context {
	return ToContext(ctx, FromContext(ctx).With(kvs...))
}
