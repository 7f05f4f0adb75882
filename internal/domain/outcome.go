package domain

// AnswerOutcome is the learner's self-assessment of a single answer.
type AnswerOutcome string

// Possible answer outcome values
const (
	OutcomeHard AnswerOutcome = "hard"
	OutcomeGood AnswerOutcome = "good"
	OutcomeEasy AnswerOutcome = "easy"
)

// Valid reports whether o is one of the known outcomes.
func (o AnswerOutcome) Valid() bool {
	switch o {
	case OutcomeHard, OutcomeGood, OutcomeEasy:
		return true
	default:
		return false
	}
}

// IsCorrect reports whether the outcome counts as a correct answer.
func (o AnswerOutcome) IsCorrect() bool {
	return o == OutcomeGood || o == OutcomeEasy
}

// SessionMode selects which cards a study session targets and whether
// answers move cards between boxes.
type SessionMode string

// Session modes
const (
	// ModeDueReview studies today's due cards and drives box transitions and the streak.
	ModeDueReview SessionMode = "due_review"

	// ModeFullReview studies every card (optionally tag-filtered) without touching boxes.
	ModeFullReview SessionMode = "full_review"

	// ModeExam runs a multiple-choice exam over a random sample of cards.
	ModeExam SessionMode = "exam"
)

// Valid reports whether m is one of the known session modes.
func (m SessionMode) Valid() bool {
	switch m {
	case ModeDueReview, ModeFullReview, ModeExam:
		return true
	default:
		return false
	}
}

// MutatesBoxes reports whether answers in this mode go through the Leitner transition.
func (m SessionMode) MutatesBoxes() bool {
	return m == ModeDueReview
}
