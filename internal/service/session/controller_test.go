package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/domain/leitner"
	"github.com/phrazzld/lexi-api/internal/events"
	"github.com/phrazzld/lexi-api/internal/exam"
	"github.com/phrazzld/lexi-api/internal/generation"
	"github.com/phrazzld/lexi-api/internal/platform/sqlstore"
	"github.com/phrazzld/lexi-api/internal/service/deck"
	"github.com/phrazzld/lexi-api/internal/service/progress"
	"github.com/phrazzld/lexi-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	deck       *deck.Service
	progress   *progress.Service
	controller *Controller
	events     []*events.SessionCompletedEvent
	clock      *time.Time
}

func newFixture(t *testing.T, wrap func(Deck) Deck) *fixture {
	t.Helper()

	db := testdb.GetTestDBWithT(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{}

	clock := testNow
	f.clock = &clock
	now := func() time.Time { return clock }

	cards := sqlstore.NewFlashcardStore(db, logger)
	local := generation.NewLocalGenerator(rand.New(rand.NewSource(1)))
	f.deck = deck.NewService(db, cards, leitner.NewDefaultService(), local, logger, deck.WithClock(now))
	f.progress = progress.NewService(db,
		sqlstore.NewUserStore(db, logger),
		cards,
		sqlstore.NewExamSessionStore(db, logger),
		logger, progress.WithClock(now))

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(events.HandlerFunc(func(_ context.Context, e *events.SessionCompletedEvent) error {
		f.events = append(f.events, e)
		return nil
	}))

	var d Deck = f.deck
	if wrap != nil {
		d = wrap(d)
	}
	questions := exam.NewGenerator(nil, local, exam.NewBuilder(rand.New(rand.NewSource(2))), logger)
	f.controller = NewController(d, f.progress, questions, emitter, logger,
		WithRand(rand.New(rand.NewSource(3))), WithExamConcurrency(2))
	return f
}

func (f *fixture) addCard(t *testing.T, word string, mutate func(*domain.Flashcard)) *domain.Flashcard {
	t.Helper()
	card, err := domain.NewFlashcard(domain.FlashcardParams{
		Word:           word,
		SourceLanguage: "English",
		TargetLanguage: "Spanish",
		Definition:     "definition of " + word,
		Translation:    word + "-es",
	}, *f.clock)
	require.NoError(t, err)
	if mutate != nil {
		mutate(card)
	}
	require.NoError(t, f.deck.AddCard(context.Background(), card))
	return card
}

func (f *fixture) user(t *testing.T) *domain.User {
	t.Helper()
	user, err := f.progress.CurrentUser(context.Background())
	require.NoError(t, err)
	return user
}

func dueAt(offset time.Duration) func(*domain.Flashcard) {
	return func(c *domain.Flashcard) { c.NextReviewAt = testNow.Add(offset) }
}

func TestDueReview_FullRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	first := f.addCard(t, "uno", dueAt(-2*time.Hour))
	second := f.addCard(t, "dos", dueAt(-time.Hour))
	third := f.addCard(t, "tres", dueAt(time.Hour))
	f.addCard(t, "cuatro", dueAt(48*time.Hour))

	summary, err := f.controller.Start(ctx, domain.ModeDueReview, DueSelector)
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, summary.State)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, first.ID, f.controller.CurrentCard().ID)
	assert.Nil(t, f.controller.CurrentQuestion())

	f.controller.Reveal()
	assert.True(t, f.controller.Summary().Revealed)

	require.NoError(t, f.controller.Answer(ctx, domain.OutcomeGood))
	assert.False(t, f.controller.Summary().Revealed)
	assert.Equal(t, second.ID, f.controller.CurrentCard().ID)
	require.NoError(t, f.controller.Answer(ctx, domain.OutcomeEasy))
	assert.Equal(t, third.ID, f.controller.CurrentCard().ID)
	require.NoError(t, f.controller.Answer(ctx, domain.OutcomeHard))

	assert.Equal(t, StateComplete, f.controller.State())
	assert.Nil(t, f.controller.CurrentCard())

	summary = f.controller.Summary()
	assert.Equal(t, 2, summary.Correct)
	assert.Equal(t, 1, summary.Incorrect)
	assert.Equal(t, 1, summary.Easy)
	assert.Equal(t, 30, summary.Points)
	assert.InDelta(t, 2.0/3.0, summary.Accuracy, 1e-9)
	require.NotNil(t, summary.EndedAt)

	for id, box := range map[uuid.UUID]int{first.ID: 2, second.ID: 3, third.ID: 1} {
		card, err := f.deck.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, box, card.Box)
		assert.Equal(t, 1, card.StudyCount)
	}

	user := f.user(t)
	assert.Equal(t, 30, user.TotalPoints)
	assert.Equal(t, 1, user.StreakCount)
	require.NotNil(t, user.LastActiveAt)

	require.Len(t, f.events, 1)
	event := f.events[0]
	assert.Equal(t, domain.ModeDueReview, event.Mode)
	assert.Len(t, event.DueAgain, 3)
	assert.Empty(t, event.Mastered)
	assert.True(t, event.DueAgain[2].NextReviewAt.Equal(testNow.Add(time.Hour)))
}

func TestDueReview_Mastery(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	card := f.addCard(t, "casi", func(c *domain.Flashcard) {
		c.Box = 4
		c.StudyCount = 4
		c.CorrectCount = 4
	})

	_, err := f.controller.Start(ctx, domain.ModeDueReview, DueSelector)
	require.NoError(t, err)
	require.NoError(t, f.controller.Answer(ctx, domain.OutcomeGood))

	summary := f.controller.Summary()
	assert.Equal(t, 1, summary.Mastered)
	assert.Equal(t, leitner.NewDefaultParams().MasteryBonus, summary.MasteryPoints)

	stored, err := f.deck.Get(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, stored.Mastered)
	assert.Equal(t, domain.MaxBox, stored.Box)

	assert.Equal(t, 60, f.user(t).TotalPoints)

	require.Len(t, f.events, 1)
	require.Len(t, f.events[0].Mastered, 1)
	assert.Equal(t, "casi", f.events[0].Mastered[0].Word)
	assert.Empty(t, f.events[0].DueAgain)
}

func TestFullReview_LeavesScheduleAlone(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	later := testNow.Add(72 * time.Hour)
	card := f.addCard(t, "lejos", func(c *domain.Flashcard) {
		c.Box = 3
		c.NextReviewAt = later
	})

	for _, outcome := range []domain.AnswerOutcome{domain.OutcomeHard, domain.OutcomeEasy} {
		_, err := f.controller.Start(ctx, domain.ModeFullReview, AllSelector(nil))
		require.NoError(t, err)
		require.NoError(t, f.controller.Answer(ctx, outcome))

		stored, err := f.deck.Get(ctx, card.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.Box)
		assert.True(t, stored.NextReviewAt.Equal(later))
		require.NotNil(t, stored.LastStudiedAt)
	}

	user := f.user(t)
	assert.Equal(t, 20, user.TotalPoints)
	assert.Zero(t, user.StreakCount)
	assert.Nil(t, user.LastActiveAt)
}

func TestAllSelector_Tags(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	f.addCard(t, "perro", func(c *domain.Flashcard) { c.Tags = []string{"animals"} })
	f.addCard(t, "mesa", func(c *domain.Flashcard) { c.Tags = []string{"home"} })

	summary, err := f.controller.Start(ctx, domain.ModeFullReview, AllSelector([]string{"Animals"}))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, "perro", f.controller.CurrentCard().Word)
}

func TestEmptyDueReview_CompletesWithoutProgress(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	f.addCard(t, "manana", dueAt(48*time.Hour))

	summary, err := f.controller.Start(ctx, domain.ModeDueReview, DueSelector)
	require.NoError(t, err)
	assert.Equal(t, StateComplete, summary.State)
	assert.Zero(t, summary.Total)
	assert.Nil(t, f.controller.CurrentCard())

	user := f.user(t)
	assert.Zero(t, user.StreakCount)
	assert.Nil(t, user.LastActiveAt)
	assert.Empty(t, f.events)
}

func TestPreconditions(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, f.controller.Answer(ctx, domain.OutcomeGood), ErrNotInProgress)
	assert.ErrorIs(t, f.controller.Skip(ctx), ErrNotInProgress)
	_, err := f.controller.AnswerChoice(ctx, 0)
	assert.ErrorIs(t, err, ErrNotInProgress)
	f.controller.Reveal()
	assert.Nil(t, f.controller.Summary())

	_, err = f.controller.Start(ctx, "cram", DueSelector)
	assert.ErrorIs(t, err, domain.ErrInvalidSessionMode)
	assert.Equal(t, StateNotStarted, f.controller.State())

	f.addCard(t, "uno", nil)
	_, err = f.controller.Start(ctx, domain.ModeDueReview, DueSelector)
	require.NoError(t, err)

	_, err = f.controller.AnswerChoice(ctx, 0)
	assert.ErrorIs(t, err, ErrWrongMode)
	assert.ErrorIs(t, f.controller.Answer(ctx, "maybe"), domain.ErrInvalidOutcome)

	summary := f.controller.Summary()
	assert.Zero(t, summary.Answered)
	assert.Zero(t, summary.Position)
	assert.Empty(t, summary.ExamChoices)

	require.NoError(t, f.controller.Answer(ctx, domain.OutcomeGood))
	assert.Equal(t, StateComplete, f.controller.State())
	assert.ErrorIs(t, f.controller.Answer(ctx, domain.OutcomeGood), ErrNotInProgress)
	assert.Equal(t, 1, f.controller.Summary().Answered)
}

func TestSkip(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	card := f.addCard(t, "uno", nil)
	f.addCard(t, "dos", nil)

	_, err := f.controller.Start(ctx, domain.ModeDueReview, DueSelector)
	require.NoError(t, err)
	require.NoError(t, f.controller.Skip(ctx))
	require.NoError(t, f.controller.Skip(ctx))

	summary := f.controller.Summary()
	assert.Equal(t, StateComplete, summary.State)
	assert.Equal(t, 2, summary.Skipped)
	assert.Zero(t, summary.Answered)
	assert.Zero(t, summary.Accuracy)

	stored, err := f.deck.Get(ctx, card.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.StudyCount)
	assert.Equal(t, 1, stored.Box)
}

func TestSummary_JSONDurationMillis(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	f.addCard(t, "uno", nil)
	_, err := f.controller.Start(ctx, domain.ModeDueReview, DueSelector)
	require.NoError(t, err)
	*f.clock = f.clock.Add(2*time.Minute + 500*time.Millisecond)
	require.NoError(t, f.controller.Skip(ctx))

	summary := f.controller.Summary()
	require.Equal(t, StateComplete, summary.State)
	assert.Equal(t, 2*time.Minute+500*time.Millisecond, summary.Duration)

	raw, err := json.Marshal(summary)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.EqualValues(t, 120500, body["duration_ms"])
	assert.Equal(t, "complete", body["state"])
	assert.NotContains(t, body, "duration")
}

func TestResetAndRestart(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	f.addCard(t, "uno", nil)
	f.addCard(t, "dos", nil)

	first, err := f.controller.Start(ctx, domain.ModeDueReview, DueSelector)
	require.NoError(t, err)
	require.NoError(t, f.controller.Answer(ctx, domain.OutcomeGood))

	second, err := f.controller.Start(ctx, domain.ModeFullReview, AllSelector(nil))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Total)
	assert.Zero(t, second.Answered)

	f.controller.Reset()
	assert.Equal(t, StateNotStarted, f.controller.State())
	assert.Nil(t, f.controller.CurrentCard())
	assert.Nil(t, f.controller.Summary())
	assert.Empty(t, f.events)
}

func TestExam(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	words := []string{"uno", "dos", "tres", "cuatro", "cinco"}
	boxes := make(map[uuid.UUID]int)
	for i, w := range words {
		card := f.addCard(t, w, func(c *domain.Flashcard) { c.Box = 1 + i%4 })
		boxes[card.ID] = card.Box
	}

	summary, err := f.controller.Start(ctx, domain.ModeExam, ExamSelector(3))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)

	assert.ErrorIs(t, f.controller.Answer(ctx, domain.OutcomeGood), ErrWrongMode)
	_, err = f.controller.AnswerChoice(ctx, exam.OptionCount)
	assert.ErrorIs(t, err, ErrInvalidChoice)

	for i := 0; i < 3; i++ {
		q := f.controller.CurrentQuestion()
		require.NotNil(t, q)
		require.NotNil(t, q.Card)
		assert.Equal(t, f.controller.CurrentCard().ID, q.Card.ID)

		selected := q.CorrectIndex
		if i > 0 {
			selected = (q.CorrectIndex + 1) % exam.OptionCount
		}
		choice, err := f.controller.AnswerChoice(ctx, selected)
		require.NoError(t, err)
		assert.Equal(t, i == 0, choice.IsCorrect)
		assert.Equal(t, i, choice.QuestionIndex)
	}

	summary = f.controller.Summary()
	assert.Equal(t, StateComplete, summary.State)
	assert.Equal(t, 1, summary.Correct)
	assert.Equal(t, 2, summary.Incorrect)
	assert.Equal(t, 20, summary.Points)
	assert.Len(t, summary.ExamChoices, 3)

	history, err := f.progress.ExamHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 3, history[0].TotalQuestions)
	assert.Equal(t, 1, history[0].CorrectAnswers)
	assert.Equal(t, 2, history[0].IncorrectAnswers)

	for id, box := range boxes {
		card, err := f.deck.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, box, card.Box)
		assert.Zero(t, card.StudyCount)
	}

	user := f.user(t)
	assert.Equal(t, 20, user.TotalPoints)
	assert.Nil(t, user.LastActiveAt)
	require.Len(t, f.events, 1)
	assert.Equal(t, domain.ModeExam, f.events[0].Mode)
}

func TestExamSelector(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, w := range []string{"a", "b", "c", "d"} {
		f.addCard(t, w, nil)
	}
	rng := rand.New(rand.NewSource(7))

	sample, err := ExamSelector(3)(ctx, f.deck, rng)
	require.NoError(t, err)
	require.Len(t, sample, 3)
	seen := make(map[uuid.UUID]bool)
	for _, c := range sample {
		assert.False(t, seen[c.ID], "sample must not repeat cards")
		seen[c.ID] = true
	}

	all, err := ExamSelector(10)(ctx, f.deck, rng)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestExamSelector_Reusable(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	f.addCard(t, "a", nil)
	f.addCard(t, "b", nil)

	whole := ExamSelector(0)
	first, err := whole(ctx, f.deck, rng)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	for _, w := range []string{"c", "d", "e"} {
		f.addCard(t, w, nil)
	}
	second, err := whole(ctx, f.deck, rng)
	require.NoError(t, err)
	assert.Len(t, second, 5)
}

// failingDeck saves nothing.
type failingDeck struct {
	Deck
	err error
}

func (d *failingDeck) RecordAnswer(context.Context, uuid.UUID, domain.AnswerOutcome) (*leitner.Transition, error) {
	return nil, d.err
}

func (d *failingDeck) MarkStudied(context.Context, uuid.UUID) (*domain.Flashcard, error) {
	return nil, d.err
}

func TestAnswer_PersistenceFailureKeepsCounting(t *testing.T) {
	t.Parallel()
	diskFull := errors.New("disk full")
	f := newFixture(t, func(d Deck) Deck { return &failingDeck{Deck: d, err: diskFull} })
	ctx := context.Background()

	card := f.addCard(t, "uno", nil)
	f.addCard(t, "dos", nil)

	_, err := f.controller.Start(ctx, domain.ModeDueReview, DueSelector)
	require.NoError(t, err)

	err = f.controller.Answer(ctx, domain.OutcomeEasy)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, diskFull)

	summary := f.controller.Summary()
	assert.Equal(t, StateInProgress, summary.State)
	assert.Equal(t, 1, summary.Correct)
	assert.Equal(t, 1, summary.Easy)
	assert.Equal(t, 15, summary.Points)
	assert.Equal(t, 1, summary.Position)

	stored, err := f.deck.Get(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Box)
}

func TestManager_SerialisesAnswers(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	const n = 6
	for i := 0; i < n; i++ {
		f.addCard(t, string(rune('a'+i)), nil)
	}
	m := NewManager(f.controller)

	view, err := m.Start(ctx, domain.ModeDueReview, DueSelector)
	require.NoError(t, err)
	require.NotNil(t, view.Card)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Answer(ctx, domain.OutcomeGood)
		}()
	}
	wg.Wait()

	current := m.Current()
	assert.Equal(t, StateComplete, current.State)
	assert.Equal(t, n, current.Summary.Correct)
	assert.Nil(t, current.Card)
	assert.Equal(t, n*10, f.user(t).TotalPoints)

	_, err = m.Answer(ctx, domain.OutcomeGood)
	assert.ErrorIs(t, err, ErrNotInProgress)

	reset := m.Reset()
	assert.Equal(t, StateNotStarted, reset.State)
	assert.Nil(t, reset.Summary)
}

func TestNewController_Panics(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	assert.Panics(t, func() { NewController(nil, f.progress, nil, nil, nil) })
	assert.Panics(t, func() { NewController(f.deck, nil, nil, nil, nil) })
	assert.Panics(t, func() { NewManager(nil) })
	assert.NotPanics(t, func() { NewController(f.deck, f.progress, nil, nil, nil) })
}
