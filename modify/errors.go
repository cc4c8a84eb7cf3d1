package modify

import (
	"fmt"

	"github.com/teranos/modx/errors"
)

// ErrorCode is a document-level error number, stable across releases so
// callers can match on it.
type ErrorCode int

const (
	CodeConflict                 ErrorCode = 1200
	CodeDocumentNotFound         ErrorCode = 1202
	CodeUniqueConstraintViolated ErrorCode = 1210
	CodeDocumentKeyBad           ErrorCode = 1221
	CodeDocumentKeyMissing       ErrorCode = 1226
	CodeDocumentTypeInvalid      ErrorCode = 1227
	CodeDocumentRevBad           ErrorCode = 1239
)

// String returns the default message for the code.
func (c ErrorCode) String() string {
	switch c {
	case CodeConflict:
		return "conflict"
	case CodeDocumentNotFound:
		return "document not found"
	case CodeUniqueConstraintViolated:
		return "unique constraint violated"
	case CodeDocumentKeyBad:
		return "illegal document key"
	case CodeDocumentKeyMissing:
		return "document key missing"
	case CodeDocumentTypeInvalid:
		return "invalid document type"
	case CodeDocumentRevBad:
		return "illegal document revision"
	}
	return fmt.Sprintf("error %d", int(c))
}

// Error is a per-document failure: a pre-validation error raised while
// classifying a row, or a failed entry inside a transaction result.
type Error struct {
	Code    ErrorCode
	Message string
}

// NewError returns an Error carrying the default message for code.
func NewError(code ErrorCode) *Error {
	return &Error{Code: code, Message: code.String()}
}

// NewErrorf returns an Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	return fmt.Sprintf("%s (error %d)", msg, int(e.Code))
}

// IsCode reports whether err is or wraps an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// FatalTransactionError reports that the gateway call itself failed. It
// aborts the cycle and is never absorbed by IgnoreErrors.
type FatalTransactionError struct {
	Collection string
	cause      error
}

func newFatal(collection string, cause error) error {
	return &FatalTransactionError{
		Collection: collection,
		cause:      errors.Wrapf(cause, "apply to collection %q", collection),
	}
}

func (e *FatalTransactionError) Error() string {
	return "transaction failed: " + e.cause.Error()
}

func (e *FatalTransactionError) Unwrap() error { return e.cause }

// IsFatal reports whether err is or wraps a FatalTransactionError.
func IsFatal(err error) bool {
	var e *FatalTransactionError
	return errors.As(err, &e)
}
