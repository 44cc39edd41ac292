package events

import (
	"context"
)

type contextKey int

const (
	loggerKey contextKey = iota
	operationKey
	identifierKey
)

// FromContext extracts logger from context.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return defaultLogger
}

// WithLogger adds logger to context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithOperation tags the context logger with the vault operation name.
func WithOperation(ctx context.Context, op string) context.Context {
	logger := FromContext(ctx).WithField("op", op)
	ctx = context.WithValue(ctx, operationKey, op)
	return WithLogger(ctx, logger)
}

// WithIdentifier tags the context logger with a record identifier.
func WithIdentifier(ctx context.Context, id string) context.Context {
	logger := FromContext(ctx).WithField("identifier", id)
	ctx = context.WithValue(ctx, identifierKey, id)
	return WithLogger(ctx, logger)
}

// GetOperation retrieves the operation name from context.
func GetOperation(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey).(string); ok {
		return op
	}
	return ""
}

// GetIdentifier retrieves the record identifier from context.
func GetIdentifier(ctx context.Context) string {
	if id, ok := ctx.Value(identifierKey).(string); ok {
		return id
	}
	return ""
}

var defaultLogger = NewNopLogger()

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
