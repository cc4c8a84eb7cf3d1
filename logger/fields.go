package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across modx.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldQueryID   = "query_id"

	// Components
	FieldComponent = "component"
	FieldSymbol    = "symbol"

	// Modification pipeline
	FieldCollection = "collection"
	FieldKind       = "kind"
	FieldOperation  = "operation"
	FieldKey        = "key"
	FieldTag        = "tag"
	FieldState      = "state"
	FieldBatchSize  = "batch_size"
	FieldDocuments  = "documents"
	FieldRowsIn     = "rows_in"
	FieldRowsOut    = "rows_out"
	FieldExecuted   = "writes_executed"
	FieldIgnored    = "writes_ignored"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorCode = "error_code"

	// Storage
	FieldPath    = "path"
	FieldVersion = "version"
)

type contextKey string

const (
	requestIDKey contextKey = "logger_request_id"
	queryIDKey   contextKey = "logger_query_id"
	componentKey contextKey = "logger_component"
)

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithQueryID adds the ID of the statement being executed to the context
func WithQueryID(ctx context.Context, queryID string) context.Context {
	return context.WithValue(ctx, queryIDKey, queryID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if queryID, ok := ctx.Value(queryIDKey).(string); ok && queryID != "" {
		fields = append(fields, FieldQueryID, queryID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base (or the global logger) with fields extracted from ctx.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	l := OrGlobal(base)
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
//
// Example:
//
//	type Store struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewStore() *Store {
//	    return &Store{logger: logger.ComponentLogger("storage")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
