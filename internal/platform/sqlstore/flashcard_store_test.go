package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/phrazzld/lexi-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashcardStore_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	log, _ := logger.NewTestLogger()
	s := NewFlashcardStore(db, log)
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	card := newTestCard(t, "ephemeral", now)
	level := domain.CEFRC1
	audio := "https://example.com/ephemeral.mp3"
	card.CEFRLevel = &level
	card.AudioURL = &audio
	card.Tags = []string{"adjectives", "gre"}

	require.NoError(t, s.Create(ctx, card))

	got, err := s.GetByID(ctx, card.ID)
	require.NoError(t, err)

	assert.Equal(t, card.ID, got.ID)
	assert.Equal(t, "ephemeral", got.Word)
	assert.Equal(t, "Spanish", got.TargetLanguage)
	assert.Equal(t, []string{"adjectives", "gre"}, got.Tags)
	require.NotNil(t, got.CEFRLevel)
	assert.Equal(t, domain.CEFRC1, *got.CEFRLevel)
	require.NotNil(t, got.AudioURL)
	assert.Equal(t, audio, *got.AudioURL)
	assert.Equal(t, 1, got.Box)
	assert.True(t, got.NextReviewAt.Equal(now))
	assert.Nil(t, got.LastStudiedAt)
	assert.False(t, got.Mastered)
}

func TestFlashcardStore_TagsRoundTrip(t *testing.T) {
	s := NewFlashcardStore(openTestDB(t), nil)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	card := newTestCard(t, "gato", now)
	card.Tags = []string{"food and drink", "b1-list"}
	require.NoError(t, s.Create(ctx, card))

	got, err := s.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"food and drink", "b1-list"}, got.Tags)

	got.Tags = []string{"food, drink"}
	assert.ErrorIs(t, s.Update(ctx, got), domain.ErrInvalidTag)

	split := newTestCard(t, "perro", now)
	split.Tags = []string{"food, drink"}
	assert.ErrorIs(t, s.Create(ctx, split), domain.ErrInvalidTag)

	stored, err := s.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"food and drink", "b1-list"}, stored.Tags)
}

func TestFlashcardStore_GetByIDNotFound(t *testing.T) {
	s := NewFlashcardStore(openTestDB(t), nil)

	_, err := s.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrFlashcardNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func TestFlashcardStore_DuplicateWordIgnoresCase(t *testing.T) {
	s := NewFlashcardStore(openTestDB(t), nil)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, newTestCard(t, "Apple", now)))

	exists, err := s.ExistsWord(ctx, "aPPLE", "English")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ExistsWord(ctx, "apple", "French")
	require.NoError(t, err)
	assert.False(t, exists, "the same word in another source language is a different card")

	err = s.Create(ctx, newTestCard(t, "apple", now))
	assert.ErrorIs(t, err, store.ErrWordExists)
	assert.True(t, store.IsDuplicateError(err))
}

func TestFlashcardStore_ListDue(t *testing.T) {
	s := NewFlashcardStore(openTestDB(t), nil)
	ctx := context.Background()

	startOfDay := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	endOfDay := startOfDay.Add(24 * time.Hour)

	late := newTestCard(t, "late", startOfDay)
	late.NextReviewAt = startOfDay.Add(20 * time.Hour)

	early := newTestCard(t, "early", startOfDay)
	early.NextReviewAt = startOfDay.Add(2 * time.Hour)

	boundary := newTestCard(t, "boundary", startOfDay)
	boundary.NextReviewAt = startOfDay

	tomorrow := newTestCard(t, "tomorrow", startOfDay)
	tomorrow.NextReviewAt = endOfDay

	yesterday := newTestCard(t, "yesterday", startOfDay)
	yesterday.NextReviewAt = startOfDay.Add(-time.Minute)

	mastered := newTestCard(t, "mastered", startOfDay)
	mastered.NextReviewAt = startOfDay.Add(time.Hour)
	mastered.Mastered = true

	for _, c := range []*domain.Flashcard{late, early, boundary, tomorrow, yesterday, mastered} {
		require.NoError(t, s.Create(ctx, c))
	}

	due, err := s.ListDue(ctx, startOfDay, endOfDay)
	require.NoError(t, err)

	words := make([]string, 0, len(due))
	for _, c := range due {
		words = append(words, c.Word)
	}
	assert.Equal(t, []string{"boundary", "early", "late"}, words)
}

func TestFlashcardStore_ListEmptyIsNotNil(t *testing.T) {
	s := NewFlashcardStore(openTestDB(t), nil)
	ctx := context.Background()

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	due, err := s.ListDue(ctx, time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.NotNil(t, due)
}

func TestFlashcardStore_ListAllNewestFirst(t *testing.T) {
	s := NewFlashcardStore(openTestDB(t), nil)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, newTestCard(t, "first", base)))
	require.NoError(t, s.Create(ctx, newTestCard(t, "second", base.Add(time.Minute))))
	require.NoError(t, s.Create(ctx, newTestCard(t, "third", base.Add(2*time.Minute))))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Word)
	assert.Equal(t, "first", all[2].Word)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestFlashcardStore_UpdateRoundTrip(t *testing.T) {
	s := NewFlashcardStore(openTestDB(t), nil)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	card := newTestCard(t, "resilient", now)
	require.NoError(t, s.Create(ctx, card))

	studied := now.Add(time.Hour)
	card.Box = 3
	card.StudyCount = 4
	card.CorrectCount = 3
	card.Mastered = true
	card.LastStudiedAt = &studied
	card.NextReviewAt = studied.Add(96 * time.Hour)
	card.Definition = "able to recover quickly"
	card.UpdatedAt = studied
	require.NoError(t, s.Update(ctx, card))

	got, err := s.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Box)
	assert.Equal(t, 4, got.StudyCount)
	assert.Equal(t, 3, got.CorrectCount)
	assert.True(t, got.Mastered)
	require.NotNil(t, got.LastStudiedAt)
	assert.True(t, got.LastStudiedAt.Equal(studied))
	assert.True(t, got.NextReviewAt.Equal(card.NextReviewAt))
	assert.Equal(t, "able to recover quickly", got.Definition)

	mastered, err := s.ListMastered(ctx)
	require.NoError(t, err)
	require.Len(t, mastered, 1)
	assert.Equal(t, card.ID, mastered[0].ID)
}

func TestFlashcardStore_UpdateRejectsInvalidAndMissing(t *testing.T) {
	s := NewFlashcardStore(openTestDB(t), nil)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	missing := newTestCard(t, "ghost", now)
	assert.ErrorIs(t, s.Update(ctx, missing), store.ErrFlashcardNotFound)

	invalid := newTestCard(t, "broken", now)
	require.NoError(t, s.Create(ctx, invalid))
	invalid.Box = 6
	assert.ErrorIs(t, s.Update(ctx, invalid), domain.ErrBoxOutOfRange)
}

func TestFlashcardStore_DeleteAndDeleteAll(t *testing.T) {
	s := NewFlashcardStore(openTestDB(t), nil)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	a := newTestCard(t, "alpha", now)
	b := newTestCard(t, "beta", now)
	c := newTestCard(t, "gamma", now)
	for _, card := range []*domain.Flashcard{a, b, c} {
		require.NoError(t, s.Create(ctx, card))
	}

	require.NoError(t, s.Delete(ctx, a.ID))
	assert.ErrorIs(t, s.Delete(ctx, a.ID), store.ErrFlashcardNotFound)

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFlashcardStore_ListMissingCEFR(t *testing.T) {
	s := NewFlashcardStore(openTestDB(t), nil)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	leveled := newTestCard(t, "leveled", now)
	level := domain.CEFRA2
	leveled.CEFRLevel = &level
	unleveled := newTestCard(t, "unleveled", now)

	require.NoError(t, s.Create(ctx, leveled))
	require.NoError(t, s.Create(ctx, unleveled))

	missing, err := s.ListMissingCEFR(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "unleveled", missing[0].Word)
}

func TestFlashcardStore_WithTxRollback(t *testing.T) {
	db := openTestDB(t)
	s := NewFlashcardStore(db, nil)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, s.WithTx(tx).Create(ctx, newTestCard(t, "transient", now)))
	require.NoError(t, tx.Rollback())

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewFlashcardStorePanicsOnNilDB(t *testing.T) {
	assert.Panics(t, func() {
		NewFlashcardStore(nil, nil)
	})
}
