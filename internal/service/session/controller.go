// Package session runs one study session at a time: due review, full review
// or exam. A session snapshots its cards at start, walks them in order and,
// when the last card is answered or skipped, hands the totals to the
// progress service and publishes a session-completed event.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/domain/leitner"
	"github.com/phrazzld/lexi-api/internal/events"
	"github.com/phrazzld/lexi-api/internal/exam"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/phrazzld/lexi-api/internal/service/progress"
)

// State is the lifecycle position of the controller.
type State string

// Controller states
const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateComplete   State = "complete"
)

// Deck is the card side of a session, implemented by deck.Service.
type Deck interface {
	Now() time.Time
	Scheduler() leitner.Service
	DueCards(ctx context.Context, asOf time.Time) ([]*domain.Flashcard, error)
	AllCards(ctx context.Context, tags []string) ([]*domain.Flashcard, error)
	RecordAnswer(ctx context.Context, id uuid.UUID, outcome domain.AnswerOutcome) (*leitner.Transition, error)
	MarkStudied(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error)
}

// Progress receives finished sessions, implemented by progress.Service.
type Progress interface {
	OnSessionComplete(ctx context.Context, outcome progress.SessionOutcome) (*domain.User, error)
	RecordExam(ctx context.Context, exam *domain.ExamSession) error
}

// QuestionSource builds exam questions, implemented by exam.Generator.
type QuestionSource interface {
	Questions(
		ctx context.Context,
		cards []*domain.Flashcard,
		pool []*domain.Flashcard,
		concurrency int,
	) ([]*exam.Question, error)
}

// Choice is one answered exam question.
type Choice struct {
	QuestionIndex int  `json:"question_index"`
	SelectedIndex int  `json:"selected_index"`
	IsCorrect     bool `json:"is_correct"`
}

// Session is the state of one run through a card snapshot.
type Session struct {
	ID        uuid.UUID
	Mode      domain.SessionMode
	Cards     []*domain.Flashcard
	Questions []*exam.Question
	Choices   []Choice
	Index     int
	Revealed  bool

	Correct   int
	Incorrect int
	Easy      int
	Skipped   int
	Points    int

	StartedAt time.Time
	EndedAt   *time.Time

	// updated holds the saved state of cards answered in this session.
	updated     map[uuid.UUID]*domain.Flashcard
	masteredNow map[uuid.UUID]bool
}

// Summary describes the running or finished session.
type Summary struct {
	ID            uuid.UUID          `json:"id"`
	Mode          domain.SessionMode `json:"mode"`
	State         State              `json:"state"`
	Total         int                `json:"total"`
	Position      int                `json:"position"`
	Answered      int                `json:"answered"`
	Correct       int                `json:"correct"`
	Incorrect     int                `json:"incorrect"`
	Easy          int                `json:"easy"`
	Skipped       int                `json:"skipped"`
	Points        int                `json:"points"`
	Mastered      int                `json:"mastered"`
	Accuracy      float64            `json:"accuracy"`
	Duration      time.Duration      `json:"-"`
	Revealed      bool               `json:"revealed"`
	StartedAt     time.Time          `json:"started_at"`
	EndedAt       *time.Time         `json:"ended_at,omitempty"`
	ExamChoices   []Choice           `json:"exam_choices,omitempty"`
	MasteryPoints int                `json:"mastery_points"`
}

// MarshalJSON renders Duration as whole milliseconds in duration_ms.
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	return json.Marshal(struct {
		plain
		DurationMs int64 `json:"duration_ms"`
	}{plain(s), s.Duration.Milliseconds()})
}

// Option configures a Controller.
type Option func(*Controller)

// WithRand sets the random source used for exam sampling.
func WithRand(rng *rand.Rand) Option {
	return func(c *Controller) {
		if rng != nil {
			c.rng = rng
		}
	}
}

// WithExamConcurrency limits how many exam questions are generated at once.
func WithExamConcurrency(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.examConcurrency = n
		}
	}
}

// Controller is the session state machine. It is not safe for concurrent
// use; Manager serialises access.
type Controller struct {
	deck            Deck
	progress        Progress
	questions       QuestionSource
	emitter         events.EventEmitter
	rng             *rand.Rand
	examConcurrency int
	logger          *slog.Logger

	state   State
	session *Session
}

// NewController creates a controller in the NotStarted state.
// A nil question source uses the local generator; a nil emitter disables events.
func NewController(
	deck Deck,
	progress Progress,
	questions QuestionSource,
	emitter events.EventEmitter,
	logger *slog.Logger,
	opts ...Option,
) *Controller {
	if deck == nil {
		panic("deck cannot be nil")
	}
	if progress == nil {
		panic("progress cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if questions == nil {
		questions = exam.NewGenerator(nil, nil, nil, logger)
	}

	c := &Controller{
		deck:            deck,
		progress:        progress,
		questions:       questions,
		emitter:         emitter,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		examConcurrency: 1,
		logger:          logger.With(slog.String("component", "session_controller")),
		state:           StateNotStarted,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the controller's lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Start snapshots the selected cards and begins a session, replacing any
// session already running. An empty selection completes immediately.
func (c *Controller) Start(ctx context.Context, mode domain.SessionMode, selector Selector) (*Summary, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSessionMode, mode)
	}
	if selector == nil {
		selector = DueSelector
	}

	cards, err := selector(ctx, c.deck, c.rng)
	if err != nil {
		log.Error("failed to select session cards",
			slog.String("error", err.Error()),
			slog.String("mode", string(mode)))
		return nil, fmt.Errorf("failed to select cards: %w", err)
	}

	var questions []*exam.Question
	if mode == domain.ModeExam && len(cards) > 0 {
		pool, err := c.deck.AllCards(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load distractor pool: %w", err)
		}
		questions, err = c.questions.Questions(ctx, cards, pool, c.examConcurrency)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare exam: %w", err)
		}
	}

	if c.state == StateInProgress {
		log.Info("abandoning running session",
			slog.String("session_id", c.session.ID.String()),
			slog.Int("position", c.session.Index))
	}

	c.session = &Session{
		ID:          uuid.New(),
		Mode:        mode,
		Cards:       cards,
		Questions:   questions,
		StartedAt:   c.deck.Now(),
		updated:     make(map[uuid.UUID]*domain.Flashcard),
		masteredNow: make(map[uuid.UUID]bool),
	}
	c.state = StateInProgress

	log.Info("session started",
		slog.String("session_id", c.session.ID.String()),
		slog.String("mode", string(mode)),
		slog.Int("cards", len(cards)))

	if len(cards) == 0 {
		if err := c.finish(ctx); err != nil {
			return nil, err
		}
	}
	return c.Summary(), nil
}

// CurrentCard returns the card at the current position, or nil.
func (c *Controller) CurrentCard() *domain.Flashcard {
	if c.state != StateInProgress || c.session.Index >= len(c.session.Cards) {
		return nil
	}
	return c.session.Cards[c.session.Index]
}

// CurrentQuestion returns the exam question at the current position, or nil
// outside an exam.
func (c *Controller) CurrentQuestion() *exam.Question {
	if c.state != StateInProgress || c.session.Index >= len(c.session.Questions) {
		return nil
	}
	return c.session.Questions[c.session.Index]
}

// Reveal shows the back of the current card. It does nothing when no card
// is showing or the card is already revealed.
func (c *Controller) Reveal() {
	if c.CurrentCard() == nil {
		return
	}
	c.session.Revealed = true
}

// Answer grades the current card in a review session and moves on.
// In a due review the card's box moves; in a full review only its study time
// is recorded. When saving fails the answer still counts and the returned
// error wraps ErrPersistence.
func (c *Controller) Answer(ctx context.Context, outcome domain.AnswerOutcome) error {
	log := logger.FromContextOrDefault(ctx, c.logger)

	card := c.CurrentCard()
	if card == nil {
		return ErrNotInProgress
	}
	if c.session.Mode == domain.ModeExam {
		return ErrWrongMode
	}
	if !outcome.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidOutcome, outcome)
	}

	points := c.deck.Scheduler().Params().PointsFor(outcome)
	var saveErr error

	switch c.session.Mode {
	case domain.ModeDueReview:
		tr, err := c.deck.RecordAnswer(ctx, card.ID, outcome)
		if err != nil {
			saveErr = err
			break
		}
		points = tr.Points
		c.session.updated[card.ID] = tr.Card
		if tr.BecameMastered {
			c.session.masteredNow[card.ID] = true
		}
	default:
		updated, err := c.deck.MarkStudied(ctx, card.ID)
		if err != nil {
			saveErr = err
			break
		}
		c.session.updated[card.ID] = updated
	}

	if saveErr != nil {
		log.Error("failed to save answer",
			slog.String("error", saveErr.Error()),
			slog.String("card_id", card.ID.String()),
			slog.String("outcome", string(outcome)))
		saveErr = fmt.Errorf("%w: %w", ErrPersistence, saveErr)
	}

	switch outcome {
	case domain.OutcomeHard:
		c.session.Incorrect++
	case domain.OutcomeEasy:
		c.session.Correct++
		c.session.Easy++
	default:
		c.session.Correct++
	}
	c.session.Points += points

	return errors.Join(saveErr, c.advance(ctx))
}

// AnswerChoice grades the current exam question. A correct choice earns the
// points of a good answer and a wrong one the points of a hard answer; cards
// are never moved between boxes.
func (c *Controller) AnswerChoice(ctx context.Context, selected int) (*Choice, error) {
	question := c.CurrentQuestion()
	if question == nil {
		if c.CurrentCard() != nil {
			return nil, ErrWrongMode
		}
		return nil, ErrNotInProgress
	}
	if selected < 0 || selected >= exam.OptionCount {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChoice, selected)
	}

	choice := Choice{
		QuestionIndex: c.session.Index,
		SelectedIndex: selected,
		IsCorrect:     question.IsCorrect(selected),
	}
	c.session.Choices = append(c.session.Choices, choice)

	params := c.deck.Scheduler().Params()
	if choice.IsCorrect {
		c.session.Correct++
		c.session.Points += params.PointsFor(domain.OutcomeGood)
	} else {
		c.session.Incorrect++
		c.session.Points += params.PointsFor(domain.OutcomeHard)
	}

	return &choice, c.advance(ctx)
}

// Skip moves past the current card without grading it.
func (c *Controller) Skip(ctx context.Context) error {
	if c.CurrentCard() == nil {
		return ErrNotInProgress
	}
	c.session.Skipped++
	return c.advance(ctx)
}

// Reset discards the session and returns to NotStarted. Answers already
// saved stay saved.
func (c *Controller) Reset() {
	c.state = StateNotStarted
	c.session = nil
}

func (c *Controller) advance(ctx context.Context) error {
	c.session.Index++
	c.session.Revealed = false
	if c.session.Index < len(c.session.Cards) {
		return nil
	}
	return c.finish(ctx)
}

// finish completes the session, saves progress and publishes the event.
// Progress is only recorded for sessions that had cards.
func (c *Controller) finish(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, c.logger)
	s := c.session

	ended := c.deck.Now()
	s.EndedAt = &ended
	c.state = StateComplete

	log.Info("session complete",
		slog.String("session_id", s.ID.String()),
		slog.String("mode", string(s.Mode)),
		slog.Int("correct", s.Correct),
		slog.Int("incorrect", s.Incorrect),
		slog.Int("skipped", s.Skipped),
		slog.Int("points", s.Points),
		slog.Int("mastered", len(s.masteredNow)))

	if len(s.Cards) == 0 {
		return nil
	}

	var errs []error

	if s.Mode == domain.ModeExam {
		record, err := domain.NewExamSession(len(s.Questions), s.Correct, s.Incorrect, ended.Sub(s.StartedAt), ended)
		if err == nil {
			err = c.progress.RecordExam(ctx, record)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrPersistence, err))
		}
	}

	if _, err := c.progress.OnSessionComplete(ctx, progress.SessionOutcome{
		Mode:          s.Mode,
		PointsEarned:  s.Points,
		MasteredCount: len(s.masteredNow),
		CompletedAt:   ended,
	}); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	if c.emitter != nil {
		event := events.NewSessionCompletedEvent(s.Mode, c.finalCards(), s.masteredNow, ended)
		if err := c.emitter.EmitEvent(ctx, event); err != nil {
			log.Warn("session completed event handler failed",
				slog.String("error", err.Error()),
				slog.String("session_id", s.ID.String()))
		}
	}

	return errors.Join(errs...)
}

// finalCards returns the snapshot with each answered card replaced by its
// saved state.
func (c *Controller) finalCards() []*domain.Flashcard {
	cards := make([]*domain.Flashcard, len(c.session.Cards))
	for i, card := range c.session.Cards {
		if updated, ok := c.session.updated[card.ID]; ok {
			cards[i] = updated
			continue
		}
		cards[i] = card
	}
	return cards
}

// Summary reports the session's totals, or nil before the first Start.
func (c *Controller) Summary() *Summary {
	s := c.session
	if s == nil {
		return nil
	}

	end := c.deck.Now()
	if s.EndedAt != nil {
		end = *s.EndedAt
	}

	answered := s.Correct + s.Incorrect
	accuracy := 0.0
	if answered > 0 {
		accuracy = float64(s.Correct) / float64(answered)
	}

	mastered := len(s.masteredNow)
	return &Summary{
		ID:            s.ID,
		Mode:          s.Mode,
		State:         c.state,
		Total:         len(s.Cards),
		Position:      min(s.Index, len(s.Cards)),
		Answered:      answered,
		Correct:       s.Correct,
		Incorrect:     s.Incorrect,
		Easy:          s.Easy,
		Skipped:       s.Skipped,
		Points:        s.Points,
		Mastered:      mastered,
		Accuracy:      accuracy,
		Duration:      end.Sub(s.StartedAt),
		Revealed:      s.Revealed,
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
		ExamChoices:   append([]Choice(nil), s.Choices...),
		MasteryPoints: mastered * c.deck.Scheduler().Params().MasteryBonus,
	}
}
