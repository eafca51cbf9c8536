package events

import (
	"context"
	"os"
)

type contextKey int

const (
	loggerKey contextKey = iota
	deviceKey
	pathKey
)

// FromContext extracts logger from context.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	// Return default logger
	return defaultLogger
}

// WithLogger adds logger to context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithDevice adds the device host to context.
func WithDevice(ctx context.Context, host string) context.Context {
	logger := FromContext(ctx).WithField("device", host)
	ctx = context.WithValue(ctx, deviceKey, host)
	return WithLogger(ctx, logger)
}

// WithPath adds a file path to context.
func WithPath(ctx context.Context, path string) context.Context {
	logger := FromContext(ctx).WithField("path", path)
	ctx = context.WithValue(ctx, pathKey, path)
	return WithLogger(ctx, logger)
}

// GetDevice retrieves the device host from context.
func GetDevice(ctx context.Context) string {
	if host, ok := ctx.Value(deviceKey).(string); ok {
		return host
	}
	return ""
}

var defaultLogger = &Logger{
	level:  InfoLevel,
	format: "text",
	output: os.Stdout,
	fields: make(map[string]interface{}),
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
