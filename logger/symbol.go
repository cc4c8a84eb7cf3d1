package logger

import (
	"github.com/teranos/modx/sym"
	"go.uber.org/zap"
)

// Symbol-aware logging helpers.
// These functions log with the symbol as a structured field, not in the message.
//
// Usage:
//
//	// Instead of:
//	logger.Debugw(sym.Pipeline + " Batch submitted", "documents", n)
//
//	// Use:
//	logger.ModifyDebugw("Batch submitted", "documents", n)
//
// This makes logs queryable by symbol and keeps messages clean.

func withSymbol(symbol string, keysAndValues []interface{}) []interface{} {
	return append([]interface{}{FieldSymbol, symbol}, keysAndValues...)
}

// ModifyInfow logs an info message with the Pipeline symbol (⋙)
func ModifyInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, withSymbol(sym.Pipeline, keysAndValues)...)
	}
}

// ModifyDebugw logs a debug message with the Pipeline symbol (⋙)
func ModifyDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, withSymbol(sym.Pipeline, keysAndValues)...)
	}
}

// ModifyWarnw logs a warning message with the Pipeline symbol (⋙)
func ModifyWarnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Warnw(msg, withSymbol(sym.Pipeline, keysAndValues)...)
	}
}

// DBInfow logs an info message with the DB symbol (⊔)
// Used for database/storage operations
func DBInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, withSymbol(sym.DB, keysAndValues)...)
	}
}

// DBDebugw logs a debug message with the DB symbol (⊔)
func DBDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, withSymbol(sym.DB, keysAndValues)...)
	}
}

// AMInfow logs an info message with the AM symbol (≡)
func AMInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, withSymbol(sym.AM, keysAndValues)...)
	}
}

// WithSymbol returns a logger with the given symbol as a field.
// For ad-hoc symbol usage not covered by the helpers above.
//
// Example:
//
//	l := logger.WithSymbol(sym.Upsert)
//	l.Debugw("Routed to update accumulator", "key", key)
func WithSymbol(symbol string) *zap.SugaredLogger {
	return Logger.With(FieldSymbol, symbol)
}

// ============================================================================
// Instance logger wrappers
// ============================================================================
// These wrap an injected logger (e.g. s.logger) rather than the global Logger.
//
//	e.log = logger.AddPipelineSymbol(logger.OrGlobal(infos.Logger))

// AddPipelineSymbol wraps a logger with the Pipeline symbol (⋙)
func AddPipelineSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Pipeline)
}

// AddDBSymbol wraps a logger with the DB symbol (⊔)
func AddDBSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.DB)
}

// AddFilterSymbol wraps a logger with the Filter symbol (⧩)
func AddFilterSymbol(l *zap.SugaredLogger) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.Filter)
}

// AddOperationSymbol wraps a logger with the glyph for an operation name
// (insert, remove, update, replace, upsert, lookup).
func AddOperationSymbol(l *zap.SugaredLogger, operation string) *zap.SugaredLogger {
	return l.With(FieldSymbol, sym.For(operation))
}
