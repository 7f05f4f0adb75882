package session

import "errors"

// Common error types for the session controller
var (
	// ErrNotInProgress indicates an answer, skip or choice arrived with no
	// session running or no current card. Nothing changed.
	ErrNotInProgress = errors.New("no session in progress")

	// ErrWrongMode indicates an operation that the running session's mode
	// does not support, such as a multiple-choice answer outside an exam.
	ErrWrongMode = errors.New("operation not supported in this session mode")

	// ErrInvalidChoice indicates a selected option outside 0..3.
	ErrInvalidChoice = errors.New("selected option out of range")

	// ErrPersistence indicates the answer was counted but could not be
	// saved. The session continues from the in-memory state.
	ErrPersistence = errors.New("failed to persist session progress")
)
