package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidOutcome is returned when an answer outcome is not hard, good or easy.
	ErrInvalidOutcome = errors.New("invalid answer outcome")

	// ErrInvalidSessionMode is returned when a session mode is not recognised.
	ErrInvalidSessionMode = errors.New("invalid session mode")

	// ErrInvalidLanguage is returned when a language is not in SupportedLanguages.
	ErrInvalidLanguage = errors.New("unsupported language")
)
