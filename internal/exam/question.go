// Package exam turns generator drafts into well-formed multiple-choice
// questions and prepares the question set for an exam session.
//
// Whatever a generator returns, a Question always has exactly OptionCount
// distinct options, a CorrectIndex that points at the right one after
// shuffling, and a hint short enough to display.
package exam

import (
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/generation"
)

const (
	// OptionCount is the number of options every question carries.
	OptionCount = 4

	// MaxHintLength is the longest hint shown to a learner, in characters.
	MaxHintLength = 150
)

// Question is a normalised multiple-choice exam question.
type Question struct {
	Prompt       string                  `json:"prompt"`
	Options      [OptionCount]string     `json:"options"`
	CorrectIndex int                     `json:"correct_index"`
	Card         *domain.Flashcard       `json:"-"`
	Kind         generation.QuestionKind `json:"kind"`
	Hint         string                  `json:"hint,omitempty"`
}

// Answer returns the correct option.
func (q *Question) Answer() string {
	return q.Options[q.CorrectIndex]
}

// IsCorrect reports whether selected is the index of the correct option.
// Out-of-range selections are simply wrong.
func (q *Question) IsCorrect(selected int) bool {
	return selected == q.CorrectIndex
}
