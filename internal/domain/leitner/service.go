// Package leitner implements the five-box Leitner scheduler that moves
// flashcards between boxes and decides when they are reviewed next.
package leitner

import (
	"errors"
	"time"

	"github.com/phrazzld/lexi-api/internal/domain"
)

// Common errors
var (
	ErrNilCard        = errors.New("flashcard cannot be nil")
	ErrInvalidOutcome = domain.ErrInvalidOutcome
)

// Transition is the result of applying an answer to a card.
type Transition struct {
	// Card is the updated copy; the input card is never modified.
	Card *domain.Flashcard

	// BecameMastered is true when this answer turned the card mastered.
	BecameMastered bool

	// Points is the flat reward for the answer, excluding any mastery bonus.
	Points int
}

// Service defines the interface for Leitner scheduling operations
type Service interface {
	// RecordAnswer computes the card's next state for an answer outcome.
	// It is the single source of truth for box transitions.
	RecordAnswer(card *domain.Flashcard, outcome domain.AnswerOutcome, now time.Time) (*Transition, error)

	// MarkStudied is the review-only path: it stamps the last studied time and
	// leaves box, counters and next review untouched.
	MarkStudied(card *domain.Flashcard, now time.Time) (*domain.Flashcard, error)

	// Params exposes the reward table and bonus used by sessions.
	Params() *Params
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new Leitner service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new Leitner service with custom parameters
func NewServiceWithParams(params *Params) Service {
	return &defaultService{
		params: params,
	}
}

// RecordAnswer implements the Service interface
func (s *defaultService) RecordAnswer(
	card *domain.Flashcard,
	outcome domain.AnswerOutcome,
	now time.Time,
) (*Transition, error) {
	if card == nil {
		return nil, ErrNilCard
	}

	if !outcome.Valid() {
		return nil, ErrInvalidOutcome
	}

	next, mastered := calculateNextCard(card, outcome, now, s.params)

	return &Transition{
		Card:           next,
		BecameMastered: mastered,
		Points:         s.params.PointsFor(outcome),
	}, nil
}

// MarkStudied implements the Service interface
func (s *defaultService) MarkStudied(card *domain.Flashcard, now time.Time) (*domain.Flashcard, error) {
	if card == nil {
		return nil, ErrNilCard
	}

	next := card.Clone()
	studied := now
	next.LastStudiedAt = &studied
	next.UpdatedAt = now

	return next, nil
}

// Params implements the Service interface
func (s *defaultService) Params() *Params {
	return s.params
}
