// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidIntent marks an intent that cannot take part in matching.
	ErrInvalidIntent = errors.New("invalid intent")

	// ErrDuplicateMatch indicates the pair was already recorded for the course.
	ErrDuplicateMatch = errors.New("duplicate match")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrNotifyUnavailable indicates a party has no reachable contact reference.
	ErrNotifyUnavailable = errors.New("no notification target")
)

// ValidationError represents one intent validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrInvalidIntent.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidIntent
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ValidationFields extracts the field names of all ValidationErrors in err,
// including those joined with errors.Join.
func ValidationFields(err error) []string {
	if err == nil {
		return nil
	}
	var fields []string
	var walk func(error)
	walk = func(e error) {
		var ve *ValidationError
		switch x := e.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		default:
			if errors.As(e, &ve) {
				fields = append(fields, ve.Field)
			}
		}
	}
	walk(err)
	return fields
}
