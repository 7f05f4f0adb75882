package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ExamSession validation errors
var (
	ErrExamSessionIDEmpty = errors.New("exam session ID cannot be empty")
	ErrExamNoQuestions    = errors.New("exam session must contain at least one question")
	ErrExamTotalsMismatch = errors.New("correct and incorrect answers cannot exceed total questions")
	ErrNegativeDuration   = errors.New("exam duration cannot be negative")
)

// ExamSession is the append-only record of one completed exam.
// Only totals are kept, never per-question detail.
type ExamSession struct {
	ID               uuid.UUID     `json:"id"`
	Date             time.Time     `json:"date"`
	TotalQuestions   int           `json:"total_questions"`
	CorrectAnswers   int           `json:"correct_answers"`
	IncorrectAnswers int           `json:"incorrect_answers"`
	Duration         time.Duration `json:"-"`
}

// NewExamSession records a finished exam.
func NewExamSession(total, correct, incorrect int, duration time.Duration, finishedAt time.Time) (*ExamSession, error) {
	session := &ExamSession{
		ID:               uuid.New(),
		Date:             finishedAt.UTC(),
		TotalQuestions:   total,
		CorrectAnswers:   correct,
		IncorrectAnswers: incorrect,
		Duration:         duration,
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate checks if the ExamSession has valid data.
func (e *ExamSession) Validate() error {
	if e.ID == uuid.Nil {
		return ErrExamSessionIDEmpty
	}
	if e.TotalQuestions < 1 {
		return ErrExamNoQuestions
	}
	if e.CorrectAnswers < 0 || e.IncorrectAnswers < 0 ||
		e.CorrectAnswers+e.IncorrectAnswers > e.TotalQuestions {
		return ErrExamTotalsMismatch
	}
	if e.Duration < 0 {
		return ErrNegativeDuration
	}
	return nil
}

// MarshalJSON renders Duration as whole milliseconds in duration_ms.
func (e ExamSession) MarshalJSON() ([]byte, error) {
	type plain ExamSession
	return json.Marshal(struct {
		plain
		DurationMs int64 `json:"duration_ms"`
	}{plain(e), e.Duration.Milliseconds()})
}

// Accuracy is the share of questions answered correctly.
func (e *ExamSession) Accuracy() float64 {
	if e.TotalQuestions == 0 {
		return 0
	}
	return float64(e.CorrectAnswers) / float64(e.TotalQuestions)
}

// ExamStatistics aggregates the exam history.
type ExamStatistics struct {
	ExamCount       int           `json:"exam_count"`
	TotalQuestions  int           `json:"total_questions"`
	TotalCorrect    int           `json:"total_correct"`
	AverageAccuracy float64       `json:"average_accuracy"`
	BestAccuracy    float64       `json:"best_accuracy"`
	TotalDuration   time.Duration `json:"-"`
}

// MarshalJSON renders TotalDuration as whole milliseconds in total_duration_ms.
func (s ExamStatistics) MarshalJSON() ([]byte, error) {
	type plain ExamStatistics
	return json.Marshal(struct {
		plain
		TotalDurationMs int64 `json:"total_duration_ms"`
	}{plain(s), s.TotalDuration.Milliseconds()})
}

// SummarizeExams folds a list of exam sessions into ExamStatistics.
func SummarizeExams(sessions []*ExamSession) ExamStatistics {
	var stats ExamStatistics
	for _, s := range sessions {
		stats.ExamCount++
		stats.TotalQuestions += s.TotalQuestions
		stats.TotalCorrect += s.CorrectAnswers
		stats.TotalDuration += s.Duration
		if acc := s.Accuracy(); acc > stats.BestAccuracy {
			stats.BestAccuracy = acc
		}
	}
	if stats.TotalQuestions > 0 {
		stats.AverageAccuracy = float64(stats.TotalCorrect) / float64(stats.TotalQuestions)
	}
	return stats
}
