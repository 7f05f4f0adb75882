package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		notFound  bool
		duplicate bool
	}{
		{name: "nil error"},
		{name: "generic error", err: errors.New("some error")},
		{name: "ErrNotFound", err: ErrNotFound, notFound: true},
		{name: "ErrFlashcardNotFound", err: ErrFlashcardNotFound, notFound: true},
		{name: "wrapped ErrUserNotFound", err: fmt.Errorf("load user: %w", ErrUserNotFound), notFound: true},
		{name: "ErrExamSessionNotFound", err: ErrExamSessionNotFound, notFound: true},
		{name: "ErrWordExists", err: ErrWordExists, duplicate: true},
		{
			name:      "store error wrapping duplicate",
			err:       NewStoreError("flashcard", "create", "word exists", ErrWordExists),
			duplicate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.notFound, IsNotFoundError(tt.err))
			assert.Equal(t, tt.duplicate, IsDuplicateError(tt.err))
		})
	}
}

func TestStoreErrorMessage(t *testing.T) {
	t.Parallel()

	withCause := NewStoreError("flashcard", "update", "no rows", ErrFlashcardNotFound)
	assert.Equal(t, "update operation on flashcard failed: no rows: entity not found: flashcard", withCause.Error())
	assert.ErrorIs(t, withCause, ErrNotFound)

	bare := NewStoreError("user", "create", "invalid", nil)
	assert.Equal(t, "create operation on user failed: invalid", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
