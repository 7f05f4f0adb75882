package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/domain"
)

// FlashcardStore defines the interface for flashcard persistence.
type FlashcardStore interface {
	// Create saves a new flashcard.
	// Returns ErrWordExists if the deck already holds the word for the same
	// source language (case-insensitive). Returns validation errors from the
	// domain Flashcard if data is invalid.
	Create(ctx context.Context, card *domain.Flashcard) error

	// GetByID retrieves a flashcard by its unique ID.
	// Returns ErrFlashcardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error)

	// Update writes every mutable field of the card in a single statement,
	// so content and scheduling state change together.
	// Returns ErrFlashcardNotFound if the card does not exist.
	Update(ctx context.Context, card *domain.Flashcard) error

	// Delete removes a flashcard by its ID.
	// Returns ErrFlashcardNotFound if the card does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListDue returns non-mastered cards with from <= next_review_at < to,
	// ordered by next_review_at ascending. Never returns nil.
	ListDue(ctx context.Context, from, to time.Time) ([]*domain.Flashcard, error)

	// ListAll returns every card, most recently created first. Never returns nil.
	ListAll(ctx context.Context) ([]*domain.Flashcard, error)

	// ListMastered returns mastered cards, most recently created first.
	ListMastered(ctx context.Context) ([]*domain.Flashcard, error)

	// ListMissingCEFR returns cards without a CEFR level.
	ListMissingCEFR(ctx context.Context) ([]*domain.Flashcard, error)

	// ExistsWord reports whether the word is already in the deck for the
	// given source language, ignoring case.
	ExistsWord(ctx context.Context, word, sourceLanguage string) (bool, error)

	// Count returns the total number of cards.
	Count(ctx context.Context) (int, error)

	// DeleteAll removes every card and returns how many were removed.
	DeleteAll(ctx context.Context) (int64, error)

	// WithTx returns a new FlashcardStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) FlashcardStore
}
