package errors

import (
	"errors"
	"fmt"
)

// ErrorWrapper tags errors with the module and operation that produced them.
type ErrorWrapper struct {
	operation string
	module    string
}

// NewWrapper creates a new error wrapper with operation and module context.
func NewWrapper(module, operation string) *ErrorWrapper {
	return &ErrorWrapper{
		module:    module,
		operation: operation,
	}
}

// Wrap wraps an error with operation context.
// Returns nil if err is nil.
func (w *ErrorWrapper) Wrap(err error, userMessage string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Operation:   w.operation,
		Module:      w.module,
		Cause:       err,
		UserMessage: userMessage,
	}
}

// Wrapf wraps an error with a formatted user message.
func (w *ErrorWrapper) Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return w.Wrap(err, fmt.Sprintf(format, args...))
}

// WrappedError contains both internal error details and an API-facing message.
type WrappedError struct {
	Operation   string // e.g. "upsert_intent", "list_matches"
	Module      string // e.g. "app", "storage"
	Cause       error
	UserMessage string
}

func (e *WrappedError) Error() string {
	return fmt.Sprintf("[%s:%s] %s: %v", e.Module, e.Operation, e.UserMessage, e.Cause)
}

func (e *WrappedError) Unwrap() error {
	return e.Cause
}

// GetUserMessage returns the API-facing message from a WrappedError.
// Returns the error string if not a WrappedError.
func GetUserMessage(err error) string {
	if err == nil {
		return ""
	}
	var we *WrappedError
	if errors.As(err, &we) {
		return we.UserMessage
	}
	return err.Error()
}
