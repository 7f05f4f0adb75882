package deck

import (
	"errors"
	"fmt"
)

// Common error types for the deck service
var (
	// ErrDuplicateWord indicates the deck already holds the word for the same
	// source language, compared case-insensitively.
	ErrDuplicateWord = errors.New("word already exists in this language")

	// ErrCardNotFound indicates that the card does not exist.
	ErrCardNotFound = errors.New("card not found")
)

// ServiceError wraps errors from the deck service with the failed operation.
// Callers use errors.As to reach it and errors.Is to reach the cause.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "add_word", "record_answer")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
