package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogEarningCreated logs a manually entered earning
func (sl *StructuredLogger) LogEarningCreated(ctx context.Context, userID string, id int64, source, platform, amount string) {
	fields := NewFields().
		WithUser(userID).
		WithPlatform(platform).
		With(FieldRecordID, id).
		With(FieldSource, source).
		With(FieldAmount, amount).
		WithOperation(OpCreate).
		WithComponent(ComponentLedger)

	sl.logger.Logger.InfoContext(ctx, "Earning created", fields.ToSlice()...)
}

// LogExpenseCreated logs successful expense creation
func (sl *StructuredLogger) LogExpenseCreated(ctx context.Context, userID string, id int64, category, amount string) {
	fields := NewFields().
		WithUser(userID).
		With(FieldRecordID, id).
		With(FieldCategory, category).
		With(FieldAmount, amount).
		WithOperation(OpCreate).
		WithComponent(ComponentLedger)

	sl.logger.Logger.InfoContext(ctx, "Expense created", fields.ToSlice()...)
}

// LogAccountConnected logs a (re)connected platform account
func (sl *StructuredLogger) LogAccountConnected(ctx context.Context, userID, platform, channelID string) {
	fields := NewFields().
		WithUser(userID).
		WithPlatform(platform).
		With(FieldChannelID, channelID).
		WithOperation(OpUpsert).
		WithComponent(ComponentOAuth)

	sl.logger.Logger.InfoContext(ctx, "Platform account connected", fields.ToSlice()...)
}

// LogSyncCompleted logs the outcome of an analytics sync
func (sl *StructuredLogger) LogSyncCompleted(ctx context.Context, userID, platform string, synced, skipped int) {
	fields := NewFields().
		WithUser(userID).
		WithPlatform(platform).
		With(FieldSyncedCount, synced).
		With(FieldSkippedCount, skipped).
		WithOperation(OpSync).
		WithComponent(ComponentYouTube)

	sl.logger.Logger.InfoContext(ctx, "Analytics sync completed", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.Logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}

// LogHTTPStart logs the beginning of an HTTP request
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, requestID, clientIP string) {
	fields := NewFields().
		WithRequestID(requestID).
		WithClientIP(clientIP).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer()).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs the completion of an HTTP request. The level follows the status class.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, requestID string, status int, duration time.Duration) {
	fields := NewFields().
		WithRequestID(requestID).
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer()).
		WithHTTPResponse(status, duration.Milliseconds(), status < 400).
		With(FieldDurationHuman, duration.String()).
		WithComponent(ComponentHTTP)

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}
