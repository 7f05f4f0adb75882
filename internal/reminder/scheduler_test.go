package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/config"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeUsers struct{ user *domain.User }

func (f *fakeUsers) CurrentUser(context.Context) (*domain.User, error) { return f.user, nil }

type fakeDue struct {
	cards []*domain.Flashcard
	err   error
}

func (f *fakeDue) DueToday(context.Context) ([]*domain.Flashcard, error) { return f.cards, f.err }

type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return nil
}

func newTestScheduler(t *testing.T, user *domain.User, due *fakeDue) (*Scheduler, *recorder) {
	t.Helper()
	rec := &recorder{}
	cfg := config.ReminderConfig{Enabled: true, StartHour: 8, EndHour: 22}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewScheduler(cfg, &fakeUsers{user: user}, due, rec, time.UTC, logger,
		WithClock(func() time.Time { return testNow }))
	t.Cleanup(s.Stop)
	return s, rec
}

func TestWithinWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"inside", time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC), time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)},
		{"end hour inclusive", time.Date(2026, 3, 10, 22, 45, 0, 0, time.UTC), time.Date(2026, 3, 10, 22, 45, 0, 0, time.UTC)},
		{"early morning", time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC), time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)},
		{"late night", time.Date(2026, 3, 10, 23, 10, 0, 0, time.UTC), time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := WithinWindow(tc.in, 8, 22, time.UTC)
			assert.True(t, tc.want.Equal(got), "got %s", got)
		})
	}
}

func TestMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "You have 1 card ready to review!", DueCardsReminder(1).Body)
	assert.Equal(t, "You have 3 cards ready to review!", DueCardsReminder(3).Body)

	id := uuid.New()
	review := ReviewReminder(events.DueCard{ID: id, Word: "casa"})
	assert.Equal(t, "review_"+id.String(), review.ID)
	assert.Equal(t, "Ready to review 'casa'?", review.Body)
	require.NotNil(t, review.CardID)
	assert.Equal(t, id, *review.CardID)

	mastered := MasteryNotice(events.MasteredCard{ID: id, Word: "casa"})
	assert.Equal(t, "Word Mastered! 🌟", mastered.Title)
	assert.Equal(t, "Congratulations! You've mastered 'casa'", mastered.Body)
}

func TestScheduleDaily(t *testing.T) {
	t.Parallel()

	user := domain.NewUser(testNow)
	s, _ := newTestScheduler(t, user, &fakeDue{})

	require.NoError(t, s.ScheduleDaily(context.Background()))
	require.NoError(t, s.ScheduleDaily(context.Background()))
	assert.Equal(t, []string{dailyTag}, s.Pending())

	user.NotificationsEnabled = false
	require.NoError(t, s.ScheduleDaily(context.Background()))
	assert.Empty(t, s.Pending())
}

func TestSendDaily(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	due := &fakeDue{}
	s, rec := newTestScheduler(t, domain.NewUser(testNow), due)

	require.NoError(t, s.SendDaily(ctx))
	due.cards = []*domain.Flashcard{{}, {}}
	require.NoError(t, s.SendDaily(ctx))

	require.Len(t, rec.notes, 2)
	assert.Equal(t, KindStudy, rec.notes[0].Kind)
	assert.Equal(t, KindDueCards, rec.notes[1].Kind)
	assert.Contains(t, rec.notes[1].Body, "2 cards")

	due.err = errors.New("db down")
	assert.Error(t, s.SendDaily(ctx))
}

func TestHandleEvent_DueReview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, rec := newTestScheduler(t, domain.NewUser(testNow), &fakeDue{})

	later := events.DueCard{ID: uuid.New(), Word: "mesa", NextReviewAt: testNow.Add(48 * time.Hour)}
	overdue := events.DueCard{ID: uuid.New(), Word: "silla", NextReviewAt: testNow.Add(-time.Minute)}
	mastered := events.MasteredCard{ID: uuid.New(), Word: "casa"}

	event := &events.SessionCompletedEvent{
		Mode:     domain.ModeDueReview,
		DueAgain: []events.DueCard{later, overdue},
		Mastered: []events.MasteredCard{mastered},
	}
	require.NoError(t, s.HandleEvent(ctx, event))

	assert.Equal(t, []string{"review_" + later.ID.String()}, s.Pending())
	require.Len(t, rec.notes, 2)
	assert.Equal(t, KindMastery, rec.notes[0].Kind)
	assert.Equal(t, KindReview, rec.notes[1].Kind)
	assert.Equal(t, *rec.notes[1].CardID, overdue.ID)

	// A second session replaces the pending reminder instead of adding one.
	require.NoError(t, s.HandleEvent(ctx, event))
	assert.Equal(t, 1, s.PendingReviews())
}

func TestHandleEvent_Ignored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	card := events.DueCard{ID: uuid.New(), Word: "mesa", NextReviewAt: testNow.Add(time.Hour)}

	s, rec := newTestScheduler(t, domain.NewUser(testNow), &fakeDue{})
	for _, mode := range []domain.SessionMode{domain.ModeFullReview, domain.ModeExam} {
		require.NoError(t, s.HandleEvent(ctx, &events.SessionCompletedEvent{Mode: mode, DueAgain: []events.DueCard{card}}))
	}
	require.NoError(t, s.HandleEvent(ctx, nil))
	assert.Empty(t, s.Pending())
	assert.Empty(t, rec.notes)

	quiet := domain.NewUser(testNow)
	quiet.NotificationsEnabled = false
	s, rec = newTestScheduler(t, quiet, &fakeDue{})
	require.NoError(t, s.HandleEvent(ctx, &events.SessionCompletedEvent{
		Mode:     domain.ModeDueReview,
		DueAgain: []events.DueCard{card},
	}))
	assert.Empty(t, s.Pending())
	assert.Empty(t, rec.notes)
}

func TestStart_Disabled(t *testing.T) {
	t.Parallel()

	s := NewScheduler(config.ReminderConfig{}, &fakeUsers{user: domain.NewUser(testNow)}, &fakeDue{}, nil, nil, nil)
	require.NoError(t, s.Start(context.Background()))
	assert.Empty(t, s.Pending())
	s.Stop()
}

func TestStart_SchedulesDaily(t *testing.T) {
	t.Parallel()

	s, _ := newTestScheduler(t, domain.NewUser(testNow), &fakeDue{})
	require.NoError(t, s.Start(context.Background()))
	assert.Contains(t, s.Pending(), dailyTag)
}

func TestNewScheduler_Panics(t *testing.T) {
	t.Parallel()

	cfg := config.ReminderConfig{Enabled: true}
	assert.Panics(t, func() { NewScheduler(cfg, nil, &fakeDue{}, nil, nil, nil) })
	assert.Panics(t, func() { NewScheduler(cfg, &fakeUsers{}, nil, nil, nil, nil) })
}
