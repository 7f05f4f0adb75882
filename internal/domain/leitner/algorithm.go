package leitner

import (
	"math"
	"time"

	"github.com/phrazzld/lexi-api/internal/domain"
)

// calculateNewBox determines which Leitner box a card moves to after an answer.
//
// Parameters:
//   - currentBox: The card's box before the answer
//   - outcome: The learner's answer outcome (Hard, Good, Easy)
//   - params: Configuration parameters for the scheduler
//
// Returns:
//   - The new box, always clamped to [params.MinBox, params.MaxBox]
//
// Algorithm behavior:
//   - "Hard" sends the card back to the first box regardless of where it was
//   - "Good" advances one box
//   - "Easy" advances two boxes (Good plus one further step)
//   - A card already in the last box stays there
func calculateNewBox(currentBox int, outcome domain.AnswerOutcome, params *Params) int {
	if outcome == domain.OutcomeHard {
		return params.MinBox
	}

	newBox := currentBox + params.BoxAdvance[outcome]
	if newBox > params.MaxBox {
		newBox = params.MaxBox
	}
	if newBox < params.MinBox {
		newBox = params.MinBox
	}
	return newBox
}

// calculateNextReviewDate determines when the card should next be reviewed.
//
// Correct answers schedule the card 2^(box-1) days out, keyed to the box the
// card ends up in (box 1 → 1 day, 2 → 2, 3 → 4, 4 → 8, 5 → 16). A Hard answer
// resurfaces the card after params.HardRetryDelay so it comes back the same day.
func calculateNextReviewDate(
	box int,
	outcome domain.AnswerOutcome,
	now time.Time,
	params *Params,
) time.Time {
	if outcome == domain.OutcomeHard {
		return now.Add(params.HardRetryDelay)
	}

	days := int(math.Pow(2, float64(box-1)))
	return now.AddDate(0, 0, days)
}

// isMastered reports whether a card has reached mastery: last box and a
// success rate of at least params.MasteryThreshold.
func isMastered(card *domain.Flashcard, params *Params) bool {
	return card.Box == params.MaxBox && card.SuccessRate() >= params.MasteryThreshold
}

// calculateNextCard creates a new Flashcard with updated scheduling state based
// on the answer outcome.
//
// Parameters:
//   - card: The current Flashcard
//   - outcome: The learner's answer outcome (Hard, Good, Easy)
//   - now: The time the answer was given
//   - params: Configuration parameters for the scheduler
//
// Returns:
//   - A new Flashcard with updated values
//   - Whether this answer turned the card mastered
//
// Algorithm behavior:
//   - Creates a deep copy of the original card
//   - Increments study count, and correct count for Good and Easy
//   - Moves the card between boxes via calculateNewBox
//   - Schedules the next review via calculateNextReviewDate using the final box
//   - Sets mastered once the card is in the last box with a high enough success
//     rate; mastery is never revoked here, even when a Hard answer resets the box
//   - Stamps last studied and updated times with now
func calculateNextCard(
	card *domain.Flashcard,
	outcome domain.AnswerOutcome,
	now time.Time,
	params *Params,
) (*domain.Flashcard, bool) {
	next := card.Clone()

	next.StudyCount++
	if outcome.IsCorrect() {
		next.CorrectCount++
	}

	next.Box = calculateNewBox(card.Box, outcome, params)
	next.NextReviewAt = calculateNextReviewDate(next.Box, outcome, now, params)

	becameMastered := false
	if outcome.IsCorrect() && !card.Mastered && isMastered(next, params) {
		next.Mastered = true
		becameMastered = true
	}

	studied := now
	next.LastStudiedAt = &studied
	next.UpdatedAt = now

	return next, becameMastered
}
