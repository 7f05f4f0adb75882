package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Daily goal bounds and defaults.
const (
	DefaultDailyGoal    = 10
	MinDailyGoal        = 5
	MaxDailyGoal        = 50
	DailyGoalStep       = 5
	DefaultUserName     = "User"
	DefaultLanguage     = "English"
	DefaultReminderTime = "19:00"
	PointsPerLevel      = 100
)

// SupportedLanguages are the languages a learner may study from or into.
var SupportedLanguages = []string{
	"English", "Spanish", "French", "German", "Italian",
	"Portuguese", "Chinese", "Japanese", "Korean", "Arabic",
}

// Common validation errors
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrEmptyUserName       = errors.New("user name cannot be empty")
	ErrInvalidDailyGoal    = errors.New("daily goal must be between 5 and 50 in steps of 5")
	ErrNegativeStreak      = errors.New("streak count cannot be negative")
	ErrNegativePoints      = errors.New("total points cannot be negative")
	ErrInvalidReminderTime = errors.New("reminder time must be formatted as HH:MM")
)

var reminderTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// User is the single learner of an installation. It holds preferences and the
// progress state maintained by the progress aggregator.
type User struct {
	ID                   uuid.UUID  `json:"id"`
	Name                 string     `json:"name"`
	SourceLanguage       string     `json:"source_language"`
	TargetLanguage       string     `json:"target_language"`
	DailyGoal            int        `json:"daily_goal"`
	StreakCount          int        `json:"streak_count"`
	TotalPoints          int        `json:"total_points"`
	LastActiveAt         *time.Time `json:"last_active_at,omitempty"`
	NotificationsEnabled bool       `json:"notifications_enabled"`
	ReminderTime         string     `json:"reminder_time"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// NewUser creates the installation user with default preferences and no activity.
func NewUser(now time.Time) *User {
	now = now.UTC()
	return &User{
		ID:                   uuid.New(),
		Name:                 DefaultUserName,
		SourceLanguage:       DefaultLanguage,
		TargetLanguage:       DefaultLanguage,
		DailyGoal:            DefaultDailyGoal,
		NotificationsEnabled: true,
		ReminderTime:         DefaultReminderTime,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Validate checks if the User has valid data.
// Returns an error if any field fails validation.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyUserName
	}
	if !IsSupportedLanguage(u.SourceLanguage) || !IsSupportedLanguage(u.TargetLanguage) {
		return ErrInvalidLanguage
	}
	if u.DailyGoal < MinDailyGoal || u.DailyGoal > MaxDailyGoal || u.DailyGoal%DailyGoalStep != 0 {
		return ErrInvalidDailyGoal
	}
	if u.StreakCount < 0 {
		return ErrNegativeStreak
	}
	if u.TotalPoints < 0 {
		return ErrNegativePoints
	}
	if !reminderTimePattern.MatchString(u.ReminderTime) {
		return ErrInvalidReminderTime
	}
	return nil
}

// Level is derived from points and never stored.
func (u *User) Level() int {
	return LevelForPoints(u.TotalPoints)
}

// LevelForPoints returns max(1, points/100).
func LevelForPoints(points int) int {
	level := points / PointsPerLevel
	if level < 1 {
		return 1
	}
	return level
}

// ReminderClock splits ReminderTime into hour and minute. Invalid values
// fall back to the default reminder time.
func (u *User) ReminderClock() (hour, minute int) {
	t, err := time.Parse("15:04", u.ReminderTime)
	if err != nil {
		t, _ = time.Parse("15:04", DefaultReminderTime)
	}
	return t.Hour(), t.Minute()
}

// IsSupportedLanguage reports whether lang is one of SupportedLanguages, ignoring case.
func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if strings.EqualFold(l, strings.TrimSpace(lang)) {
			return true
		}
	}
	return false
}
