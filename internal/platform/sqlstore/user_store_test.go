package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore_CurrentUserLifecycle(t *testing.T) {
	s := NewUserStore(openTestDB(t), nil)
	ctx := context.Background()

	_, err := s.GetCurrent(ctx)
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	user := domain.NewUser(created)
	require.NoError(t, s.Create(ctx, user))

	later := domain.NewUser(created.Add(time.Hour))
	require.NoError(t, s.Create(ctx, later))

	current, err := s.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID, "the oldest user is the installation user")
	assert.Equal(t, domain.DefaultDailyGoal, current.DailyGoal)
	assert.Equal(t, domain.DefaultReminderTime, current.ReminderTime)
	assert.True(t, current.NotificationsEnabled)
	assert.Nil(t, current.LastActiveAt)
}

func TestUserStore_UpdateProgress(t *testing.T) {
	s := NewUserStore(openTestDB(t), nil)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	user := domain.NewUser(now)
	require.NoError(t, s.Create(ctx, user))

	active := now.Add(36 * time.Hour)
	user.TotalPoints = 260
	user.StreakCount = 2
	user.LastActiveAt = &active
	user.NotificationsEnabled = false
	user.DailyGoal = 25
	user.UpdatedAt = active
	require.NoError(t, s.Update(ctx, user))

	got, err := s.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 260, got.TotalPoints)
	assert.Equal(t, 2, got.Level())
	assert.Equal(t, 2, got.StreakCount)
	assert.Equal(t, 25, got.DailyGoal)
	assert.False(t, got.NotificationsEnabled)
	require.NotNil(t, got.LastActiveAt)
	assert.True(t, got.LastActiveAt.Equal(active))
}

func TestUserStore_NotFound(t *testing.T) {
	s := NewUserStore(openTestDB(t), nil)
	ctx := context.Background()

	_, err := s.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	ghost := domain.NewUser(time.Now())
	assert.ErrorIs(t, s.Update(ctx, ghost), store.ErrUserNotFound)
	assert.ErrorIs(t, s.Delete(ctx, ghost.ID), store.ErrUserNotFound)
}

func TestUserStore_RejectsInvalidUser(t *testing.T) {
	s := NewUserStore(openTestDB(t), nil)

	user := domain.NewUser(time.Now())
	user.DailyGoal = 7
	assert.ErrorIs(t, s.Create(context.Background(), user), domain.ErrInvalidDailyGoal)
}
