package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/events"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
)

// Kind identifies what a notification is about.
type Kind string

// Notification kinds
const (
	KindStudy    Kind = "study"
	KindDueCards Kind = "due_cards"
	KindReview   Kind = "review"
	KindMastery  Kind = "mastery"
)

// Notification is a message for the learner.
type Notification struct {
	// ID is stable per purpose, so a newer notification replaces an older one.
	ID     string     `json:"id"`
	Kind   Kind       `json:"kind"`
	Title  string     `json:"title"`
	Body   string     `json:"body"`
	CardID *uuid.UUID `json:"card_id,omitempty"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f(ctx, n).
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogNotifier writes notifications to the log. It is the default delivery
// channel for a headless installation.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "notifier"))}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, note Notification) error {
	logger.FromContextOrDefault(ctx, n.logger).Info("notification",
		slog.String("id", note.ID),
		slog.String("kind", string(note.Kind)),
		slog.String("title", note.Title),
		slog.String("body", note.Body))
	return nil
}

// StudyReminder is the daily nudge when nothing is due.
func StudyReminder() Notification {
	return Notification{
		ID:    "daily_study_reminder",
		Kind:  KindStudy,
		Title: "Time to Study!",
		Body:  "Don't forget to review your flashcards today 📚",
	}
}

// DueCardsReminder tells the learner how many cards are waiting.
func DueCardsReminder(count int) Notification {
	plural := ""
	if count > 1 {
		plural = "s"
	}
	return Notification{
		ID:    "daily_due_cards",
		Kind:  KindDueCards,
		Title: "Cards Ready for Review",
		Body:  fmt.Sprintf("You have %d card%s ready to review!", count, plural),
	}
}

// ReviewReminder asks the learner to review one card.
func ReviewReminder(card events.DueCard) Notification {
	id := card.ID
	return Notification{
		ID:     "review_" + card.ID.String(),
		Kind:   KindReview,
		Title:  "Time to Review!",
		Body:   fmt.Sprintf("Ready to review '%s'?", card.Word),
		CardID: &id,
	}
}

// MasteryNotice congratulates the learner on a mastered card.
func MasteryNotice(card events.MasteredCard) Notification {
	id := card.ID
	return Notification{
		ID:     "mastery_" + card.ID.String(),
		Kind:   KindMastery,
		Title:  "Word Mastered! 🌟",
		Body:   fmt.Sprintf("Congratulations! You've mastered '%s'", card.Word),
		CardID: &id,
	}
}

// WithinWindow moves t forward to startHour on the same or next day when it
// falls outside [startHour, endHour] in loc. Times inside the window are
// returned unchanged.
func WithinWindow(t time.Time, startHour, endHour int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if h := local.Hour(); h >= startHour && h <= endHour {
		return t
	}

	start := time.Date(local.Year(), local.Month(), local.Day(), startHour, 0, 0, 0, loc)
	if local.Hour() > endHour {
		start = start.AddDate(0, 0, 1)
	}
	return start
}
