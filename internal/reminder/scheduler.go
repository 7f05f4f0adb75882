// Package reminder schedules study notifications: a daily reminder at the
// learner's chosen time, a review reminder for each card still due after a
// due review, and a notice for every card mastered during one.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/phrazzld/lexi-api/internal/config"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/events"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
)

const (
	dailyTag     = "daily_study_reminder"
	reviewPrefix = "review_"
)

// UserSource provides the learner's reminder preferences.
type UserSource interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// DueSource lists the cards due today.
type DueSource interface {
	DueToday(ctx context.Context) ([]*domain.Flashcard, error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler runs reminder jobs on a gocron scheduler.
type Scheduler struct {
	cron     *gocron.Scheduler
	cfg      config.ReminderConfig
	users    UserSource
	due      DueSource
	notifier Notifier
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewScheduler creates a reminder scheduler. Nothing runs until Start.
func NewScheduler(
	cfg config.ReminderConfig,
	users UserSource,
	due DueSource,
	notifier Notifier,
	loc *time.Location,
	logger *slog.Logger,
	opts ...Option,
) *Scheduler {
	if users == nil {
		panic("users cannot be nil")
	}
	if due == nil {
		panic("due cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if loc == nil {
		loc = time.UTC
	}

	s := &Scheduler{
		cron:     gocron.NewScheduler(loc),
		cfg:      cfg,
		users:    users,
		due:      due,
		notifier: notifier,
		location: loc,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "reminder_scheduler")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the daily reminder and starts running jobs in the
// background. It does nothing when reminders are disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info("reminders disabled")
		return nil
	}

	if err := s.ScheduleDaily(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.cron.StartAsync()
		s.started = true
	}
	return nil
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.cron.Stop()
		s.started = false
	}
}

// ScheduleDaily replaces the daily reminder with one at the learner's current
// reminder time, or removes it when notifications are turned off.
func (s *Scheduler) ScheduleDaily(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to load reminder settings: %w", err)
	}

	s.removeTag(dailyTag)
	if !s.cfg.Enabled || !user.NotificationsEnabled {
		log.Info("daily reminder off")
		return nil
	}

	hour, minute := user.ReminderClock()
	at := fmt.Sprintf("%02d:%02d", hour, minute)
	if _, err := s.cron.Every(1).Day().At(at).Tag(dailyTag).Do(s.sendDaily); err != nil {
		return fmt.Errorf("failed to schedule daily reminder: %w", err)
	}

	log.Info("daily reminder scheduled", slog.String("at", at))
	return nil
}

// sendDaily reports the due count, or a plain study reminder when nothing is due.
func (s *Scheduler) sendDaily() {
	ctx := logger.WithLogger(context.Background(), s.logger)
	if err := s.SendDaily(ctx); err != nil {
		s.logger.Error("daily reminder failed", slog.String("error", err.Error()))
	}
}

// SendDaily delivers today's reminder immediately.
func (s *Scheduler) SendDaily(ctx context.Context) error {
	due, err := s.due.DueToday(ctx)
	if err != nil {
		return fmt.Errorf("failed to count due cards: %w", err)
	}

	note := StudyReminder()
	if len(due) > 0 {
		note = DueCardsReminder(len(due))
	}
	return s.notifier.Notify(ctx, note)
}

// HandleEvent implements events.EventHandler. After a due review every card
// still due gets a review reminder at its next review time, moved into the
// configured hours, and every newly mastered card a notice right away.
// Other session modes schedule nothing.
func (s *Scheduler) HandleEvent(ctx context.Context, event *events.SessionCompletedEvent) error {
	if event == nil || event.Mode != domain.ModeDueReview || !s.cfg.Enabled {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to load reminder settings: %w", err)
	}
	if !user.NotificationsEnabled {
		return nil
	}

	var errs []error
	for _, card := range event.Mastered {
		s.removeTag(reviewPrefix + card.ID.String())
		if err := s.notifier.Notify(ctx, MasteryNotice(card)); err != nil {
			errs = append(errs, err)
		}
	}

	now := s.now()
	for _, card := range event.DueAgain {
		at := WithinWindow(card.NextReviewAt, s.cfg.StartHour, s.cfg.EndHour, s.location)
		if err := s.scheduleReview(ctx, ReviewReminder(card), at, now); err != nil {
			errs = append(errs, err)
		}
	}

	log.Debug("session reminders scheduled",
		slog.Int("reviews", len(event.DueAgain)),
		slog.Int("mastered", len(event.Mastered)))
	return errors.Join(errs...)
}

// scheduleReview replaces any pending reminder for the same card with a
// one-off job at at. Reminders already due are sent immediately.
func (s *Scheduler) scheduleReview(ctx context.Context, note Notification, at, now time.Time) error {
	s.removeTag(note.ID)

	if !at.After(now) {
		return s.notifier.Notify(ctx, note)
	}

	send := func() {
		jobCtx := logger.WithLogger(context.Background(), s.logger)
		if err := s.notifier.Notify(jobCtx, note); err != nil {
			s.logger.Error("review reminder failed",
				slog.String("error", err.Error()),
				slog.String("id", note.ID))
		}
	}

	_, err := s.cron.Every(1).Day().StartAt(at).LimitRunsTo(1).Tag(note.ID).Do(send)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", note.ID, err)
	}
	return nil
}

func (s *Scheduler) removeTag(tag string) {
	// gocron reports a missing tag as an error; nothing to remove is fine.
	_ = s.cron.RemoveByTag(tag)
}

// Pending returns the tags of scheduled jobs, sorted.
func (s *Scheduler) Pending() []string {
	var tags []string
	for _, job := range s.cron.Jobs() {
		tags = append(tags, job.Tags()...)
	}
	sort.Strings(tags)
	return tags
}

// PendingReviews returns how many per-card review reminders are scheduled.
func (s *Scheduler) PendingReviews() int {
	n := 0
	for _, tag := range s.Pending() {
		if strings.HasPrefix(tag, reviewPrefix) {
			n++
		}
	}
	return n
}
