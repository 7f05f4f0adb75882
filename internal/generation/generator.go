package generation

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/phrazzld/lexi-api/internal/domain"
)

// WordDefinition is the content a generator writes for a new word.
type WordDefinition struct {
	Word            string `json:"word" validate:"required"`
	Definition      string `json:"definition" validate:"required"`
	ShortDefinition string `json:"shortDefinition"`
	Translation     string `json:"translation" validate:"required"`
	Example         string `json:"example"`
	Phonetics       string `json:"phonetics"`
}

// QuestionKind selects the shape of an exam question.
type QuestionKind string

// Supported question kinds.
const (
	KindDefinition      QuestionKind = "definition"
	KindWordDifferent   QuestionKind = "word_different"
	KindWordSimilar     QuestionKind = "word_similar"
	KindContextScenario QuestionKind = "context_scenario"
	KindFillInBlank     QuestionKind = "fill_in_blank"
)

// QuestionKinds lists every kind in a stable order.
var QuestionKinds = []QuestionKind{
	KindDefinition,
	KindWordDifferent,
	KindWordSimilar,
	KindContextScenario,
	KindFillInBlank,
}

// Valid reports whether k is one of the supported kinds.
func (k QuestionKind) Valid() bool {
	for _, known := range QuestionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// RandomKind picks a question kind uniformly at random.
func RandomKind(rng *rand.Rand) QuestionKind {
	return QuestionKinds[rng.Intn(len(QuestionKinds))]
}

// QuestionDraft is a generator's raw multiple-choice question. Drafts may
// carry the wrong number of options or duplicates; exam.Builder normalises
// them before they reach a learner.
type QuestionDraft struct {
	Prompt       string       `json:"question" validate:"required"`
	Options      []string     `json:"options" validate:"required,min=1,dive,required"`
	CorrectIndex int          `json:"correctAnswerIndex" validate:"gte=0"`
	Hint         string       `json:"tip"`
	Kind         QuestionKind `json:"-"`
}

// Answer returns the option marked correct.
func (d *QuestionDraft) Answer() (string, error) {
	if d.CorrectIndex < 0 || d.CorrectIndex >= len(d.Options) {
		return "", fmt.Errorf("%w: correct index %d out of range for %d options",
			ErrDecode, d.CorrectIndex, len(d.Options))
	}
	answer := strings.TrimSpace(d.Options[d.CorrectIndex])
	if answer == "" {
		return "", fmt.Errorf("%w: correct option is empty", ErrDecode)
	}
	return answer, nil
}

// ContentGenerator writes definitions, translations and examples for a word.
type ContentGenerator interface {
	// GenerateDefinition returns content for word, defined in sourceLanguage
	// and translated into targetLanguage.
	GenerateDefinition(ctx context.Context, word, sourceLanguage, targetLanguage string) (*WordDefinition, error)
}

// QuestionGenerator writes a multiple-choice question about one card.
type QuestionGenerator interface {
	// GenerateQuestion returns a draft question of the given kind for card.
	// pool holds the other cards of the exam and may be used for distractors.
	GenerateQuestion(ctx context.Context, card *domain.Flashcard, kind QuestionKind, pool []*domain.Flashcard) (*QuestionDraft, error)
}

// LevelClassifier estimates the CEFR level of a word.
type LevelClassifier interface {
	ClassifyLevel(ctx context.Context, word, sourceLanguage string) (domain.CEFRLevel, error)
}

// Provider is a full generation backend.
type Provider interface {
	ContentGenerator
	QuestionGenerator
	LevelClassifier
}
