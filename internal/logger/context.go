package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// SQL returns the fields logged with a compiled statement.
func SQL(entity, phase, sql string, args []any) []zap.Field {
	return []zap.Field{
		zap.String("entity", entity),
		zap.String("phase", phase),
		zap.String("sql", sql),
		zap.Int("args", len(args)),
	}
}
