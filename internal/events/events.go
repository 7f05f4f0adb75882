package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/domain"
)

// DueCard is a card that still needs review after a session.
type DueCard struct {
	ID           uuid.UUID `json:"id"`
	Word         string    `json:"word"`
	NextReviewAt time.Time `json:"next_review_at"`
}

// MasteredCard is a card that reached mastery during a session.
type MasteredCard struct {
	ID   uuid.UUID `json:"id"`
	Word string    `json:"word"`
}

// SessionCompletedEvent is published once when a study session finishes.
type SessionCompletedEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Mode is the mode of the finished session
	Mode domain.SessionMode `json:"mode"`

	// DueAgain lists the session's cards that are not mastered, with their next review time
	DueAgain []DueCard `json:"due_again"`

	// Mastered lists cards that became mastered during the session
	Mastered []MasteredCard `json:"mastered"`

	// CompletedAt is the time the session finished
	CompletedAt time.Time `json:"completed_at"`
}

// NewSessionCompletedEvent builds an event from the session's final card states.
// Mastered cards are never due again; masteredNow marks cards mastered by this session.
func NewSessionCompletedEvent(
	mode domain.SessionMode,
	cards []*domain.Flashcard,
	masteredNow map[uuid.UUID]bool,
	completedAt time.Time,
) *SessionCompletedEvent {
	event := &SessionCompletedEvent{
		ID:          uuid.New(),
		Mode:        mode,
		DueAgain:    make([]DueCard, 0, len(cards)),
		Mastered:    make([]MasteredCard, 0, len(masteredNow)),
		CompletedAt: completedAt,
	}

	for _, card := range cards {
		if card == nil {
			continue
		}
		if masteredNow[card.ID] {
			event.Mastered = append(event.Mastered, MasteredCard{ID: card.ID, Word: card.Word})
		}
		if card.Mastered {
			continue
		}
		event.DueAgain = append(event.DueAgain, DueCard{
			ID:           card.ID,
			Word:         card.Word,
			NextReviewAt: card.NextReviewAt,
		})
	}

	return event
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *SessionCompletedEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *SessionCompletedEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *SessionCompletedEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *SessionCompletedEvent) error {
	return f(ctx, event)
}
