// Package progress keeps the installation user's points, streak and
// preferences, and answers "how am I doing" questions about the deck.
package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/phrazzld/lexi-api/internal/store"
)

// DefaultMasteryBonus is awarded per card mastered during a session.
const DefaultMasteryBonus = 50

// ErrInvalidOutcome indicates a session outcome with a bad mode or negative totals.
var ErrInvalidOutcome = errors.New("invalid session outcome")

// SessionOutcome is what a finished session contributes to progress.
type SessionOutcome struct {
	Mode          domain.SessionMode
	PointsEarned  int
	MasteredCount int
	CompletedAt   time.Time
}

// ProfileUpdate changes user preferences. Nil fields are left as they are.
type ProfileUpdate struct {
	Name                 *string
	SourceLanguage       *string
	TargetLanguage       *string
	DailyGoal            *int
	NotificationsEnabled *bool
	ReminderTime         *string
}

// Snapshot is the learner's progress at a point in time.
type Snapshot struct {
	User          *domain.User  `json:"user"`
	Level         int           `json:"level"`
	TotalCards    int           `json:"total_cards"`
	MasteredCards int           `json:"mastered_cards"`
	DueToday      int           `json:"due_today"`
	StudiedToday  int           `json:"studied_today"`
	GoalProgress  float64       `json:"goal_progress"`
	Achievements  []Achievement `json:"achievements"`
}

// WipeResult reports what Wipe removed.
type WipeResult struct {
	Cards       int64 `json:"cards"`
	Exams       int64 `json:"exams"`
	UserRemoved bool  `json:"user_removed"`
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone used for calendar days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithMasteryBonus overrides DefaultMasteryBonus.
func WithMasteryBonus(bonus int) Option {
	return func(s *Service) {
		if bonus >= 0 {
			s.masteryBonus = bonus
		}
	}
}

// Service aggregates session outcomes into the user record.
type Service struct {
	db           store.Beginner
	users        store.UserStore
	cards        store.FlashcardStore
	exams        store.ExamSessionStore
	masteryBonus int
	location     *time.Location
	now          func() time.Time
	logger       *slog.Logger

	// mu serialises read-modify-write cycles on the single user row.
	mu sync.Mutex
}

// NewService creates a progress service.
func NewService(
	db store.Beginner,
	users store.UserStore,
	cards store.FlashcardStore,
	exams store.ExamSessionStore,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if db == nil {
		panic("db cannot be nil")
	}
	if users == nil {
		panic("users cannot be nil")
	}
	if cards == nil {
		panic("cards cannot be nil")
	}
	if exams == nil {
		panic("exams cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		db:           db,
		users:        users,
		cards:        cards,
		exams:        exams,
		masteryBonus: DefaultMasteryBonus,
		location:     time.UTC,
		now:          time.Now,
		logger:       logger.With(slog.String("component", "progress_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentUser returns the installation user, creating it on first access.
func (s *Service) CurrentUser(ctx context.Context) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var user *domain.User
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		user, err = s.currentUser(ctx, s.users.WithTx(tx))
		return err
	})
	if err != nil {
		return nil, NewServiceError("current_user", "failed to load user", err)
	}
	return user, nil
}

func (s *Service) currentUser(ctx context.Context, users store.UserStore) (*domain.User, error) {
	user, err := users.GetCurrent(ctx)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}

	user = domain.NewUser(s.now())
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("created installation user",
		slog.String("user_id", user.ID.String()))
	return user, nil
}

// OnSessionComplete folds a finished session into the user's totals and
// returns the saved user.
func (s *Service) OnSessionComplete(ctx context.Context, outcome SessionOutcome) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !outcome.Mode.Valid() || outcome.PointsEarned < 0 || outcome.MasteredCount < 0 {
		return nil, NewServiceError("session_complete", "invalid outcome", ErrInvalidOutcome)
	}
	if outcome.CompletedAt.IsZero() {
		outcome.CompletedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated *domain.User
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		users := s.users.WithTx(tx)

		user, err := s.currentUser(ctx, users)
		if err != nil {
			return err
		}

		updated = ApplyOutcome(user, outcome, s.masteryBonus, s.location)
		updated.UpdatedAt = s.now().UTC()
		return users.Update(ctx, updated)
	})
	if err != nil {
		log.Error("failed to save session progress",
			slog.String("error", err.Error()),
			slog.String("mode", string(outcome.Mode)))
		return nil, NewServiceError("session_complete", "failed to save progress", err)
	}

	log.Info("session progress saved",
		slog.String("mode", string(outcome.Mode)),
		slog.Int("points_earned", outcome.PointsEarned),
		slog.Int("mastered", outcome.MasteredCount),
		slog.Int("total_points", updated.TotalPoints),
		slog.Int("streak", updated.StreakCount))
	return updated, nil
}

// ApplyOutcome returns a copy of user with the session's points and mastery
// bonus added. Only due reviews touch the streak and last active time:
// the first one starts a streak of 1, another on the same calendar day
// changes nothing, one on the next day extends the streak, and anything later
// restarts it at 1.
func ApplyOutcome(user *domain.User, outcome SessionOutcome, masteryBonus int, loc *time.Location) *domain.User {
	next := *user
	if user.LastActiveAt != nil {
		last := *user.LastActiveAt
		next.LastActiveAt = &last
	}

	next.TotalPoints += outcome.PointsEarned + masteryBonus*outcome.MasteredCount

	if outcome.Mode != domain.ModeDueReview {
		return &next
	}

	switch {
	case next.LastActiveAt == nil:
		next.StreakCount = 1
	default:
		switch domain.DaysBetween(*next.LastActiveAt, outcome.CompletedAt, loc) {
		case 0:
		case 1:
			next.StreakCount++
		default:
			next.StreakCount = 1
		}
	}

	completed := outcome.CompletedAt.UTC()
	next.LastActiveAt = &completed
	return &next
}

// UpdateProfile changes the user's preferences.
func (s *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated *domain.User
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		users := s.users.WithTx(tx)

		user, err := s.currentUser(ctx, users)
		if err != nil {
			return err
		}

		if update.Name != nil {
			user.Name = strings.TrimSpace(*update.Name)
		}
		if update.SourceLanguage != nil {
			user.SourceLanguage = strings.TrimSpace(*update.SourceLanguage)
		}
		if update.TargetLanguage != nil {
			user.TargetLanguage = strings.TrimSpace(*update.TargetLanguage)
		}
		if update.DailyGoal != nil {
			user.DailyGoal = *update.DailyGoal
		}
		if update.NotificationsEnabled != nil {
			user.NotificationsEnabled = *update.NotificationsEnabled
		}
		if update.ReminderTime != nil {
			user.ReminderTime = strings.TrimSpace(*update.ReminderTime)
		}
		if err := user.Validate(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		user.UpdatedAt = s.now().UTC()

		updated = user
		return users.Update(ctx, user)
	})
	if err != nil {
		return nil, NewServiceError("update_profile", "failed to update profile", err)
	}
	return updated, nil
}

// Snapshot reports the user's level, deck counts, today's goal progress and
// unlocked achievements.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	total, err := s.cards.Count(ctx)
	if err != nil {
		return nil, NewServiceError("snapshot", "failed to count cards", err)
	}

	mastered, err := s.cards.ListMastered(ctx)
	if err != nil {
		return nil, NewServiceError("snapshot", "failed to list mastered cards", err)
	}

	now := s.now()
	start, end := domain.StudyDay(now, s.location)
	due, err := s.cards.ListDue(ctx, start, end)
	if err != nil {
		return nil, NewServiceError("snapshot", "failed to list due cards", err)
	}

	all, err := s.cards.ListAll(ctx)
	if err != nil {
		return nil, NewServiceError("snapshot", "failed to list cards", err)
	}
	studied := 0
	for _, card := range all {
		if card.LastStudiedAt != nil && !card.LastStudiedAt.Before(start) && card.LastStudiedAt.Before(end) {
			studied++
		}
	}

	goal := 0.0
	if user.DailyGoal > 0 {
		goal = min(1, float64(studied)/float64(user.DailyGoal))
	}

	return &Snapshot{
		User:          user,
		Level:         user.Level(),
		TotalCards:    total,
		MasteredCards: len(mastered),
		DueToday:      len(due),
		StudiedToday:  studied,
		GoalProgress:  goal,
		Achievements:  Unlocked(total, len(mastered), user.StreakCount),
	}, nil
}

// RecordExam appends a finished exam to the history.
func (s *Service) RecordExam(ctx context.Context, exam *domain.ExamSession) error {
	if err := s.exams.Create(ctx, exam); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save exam",
			slog.String("error", err.Error()))
		return NewServiceError("record_exam", "failed to save exam", err)
	}
	return nil
}

// ExamHistory returns past exams newest first; limit <= 0 returns all.
func (s *Service) ExamHistory(ctx context.Context, limit int) ([]*domain.ExamSession, error) {
	exams, err := s.exams.List(ctx, limit)
	if err != nil {
		return nil, NewServiceError("exam_history", "failed to list exams", err)
	}
	return exams, nil
}

// ExamStatistics aggregates the whole exam history.
func (s *Service) ExamStatistics(ctx context.Context) (domain.ExamStatistics, error) {
	exams, err := s.ExamHistory(ctx, 0)
	if err != nil {
		return domain.ExamStatistics{}, err
	}
	return domain.SummarizeExams(exams), nil
}

// Wipe deletes every card, the exam history and the user in one transaction.
// The next CurrentUser call creates a fresh user.
func (s *Service) Wipe(ctx context.Context) (*WipeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &WipeResult{}
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		if result.Exams, err = s.exams.WithTx(tx).DeleteAll(ctx); err != nil {
			return err
		}
		if result.Cards, err = s.cards.WithTx(tx).DeleteAll(ctx); err != nil {
			return err
		}

		users := s.users.WithTx(tx)
		user, err := users.GetCurrent(ctx)
		if errors.Is(err, store.ErrUserNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := users.Delete(ctx, user.ID); err != nil {
			return err
		}
		result.UserRemoved = true
		return nil
	})
	if err != nil {
		return nil, NewServiceError("wipe", "failed to wipe data", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Warn("all learner data wiped",
		slog.Int64("cards", result.Cards),
		slog.Int64("exams", result.Exams),
		slog.Bool("user_removed", result.UserRemoved))
	return result, nil
}
