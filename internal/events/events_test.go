package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCard(t *testing.T, word string, now time.Time) *domain.Flashcard {
	t.Helper()
	card, err := domain.NewFlashcard(domain.FlashcardParams{
		Word: word, SourceLanguage: "English", TargetLanguage: "Spanish",
	}, now)
	require.NoError(t, err)
	return card
}

func TestNewSessionCompletedEvent(t *testing.T) {
	now := time.Date(2026, 5, 4, 18, 30, 0, 0, time.UTC)

	due := newCard(t, "apple", now)
	due.NextReviewAt = now.Add(24 * time.Hour)

	masteredNow := newCard(t, "pear", now)
	masteredNow.Box = 5
	masteredNow.Mastered = true

	masteredBefore := newCard(t, "plum", now)
	masteredBefore.Box = 5
	masteredBefore.Mastered = true

	event := NewSessionCompletedEvent(
		domain.ModeDueReview,
		[]*domain.Flashcard{due, masteredNow, nil, masteredBefore},
		map[uuid.UUID]bool{masteredNow.ID: true},
		now,
	)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, domain.ModeDueReview, event.Mode)
	assert.Equal(t, now, event.CompletedAt)

	require.Len(t, event.DueAgain, 1)
	assert.Equal(t, due.ID, event.DueAgain[0].ID)
	assert.Equal(t, "apple", event.DueAgain[0].Word)
	assert.Equal(t, due.NextReviewAt, event.DueAgain[0].NextReviewAt)

	require.Len(t, event.Mastered, 1)
	assert.Equal(t, MasteredCard{ID: masteredNow.ID, Word: "pear"}, event.Mastered[0])
}

func TestNewSessionCompletedEventEmpty(t *testing.T) {
	event := NewSessionCompletedEvent(domain.ModeExam, nil, nil, time.Now())
	assert.NotNil(t, event.DueAgain)
	assert.NotNil(t, event.Mastered)
	assert.Empty(t, event.DueAgain)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *SessionCompletedEvent
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *SessionCompletedEvent) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestHandlerFunc(t *testing.T) {
	var got *SessionCompletedEvent
	handler := HandlerFunc(func(ctx context.Context, event *SessionCompletedEvent) error {
		got = event
		return errors.New("handled")
	})

	event := NewSessionCompletedEvent(domain.ModeFullReview, nil, nil, time.Now())
	err := handler.HandleEvent(context.Background(), event)
	assert.EqualError(t, err, "handled")
	assert.Same(t, event, got)
}
