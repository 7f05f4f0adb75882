package session

import (
	"context"
	"math/rand"

	"github.com/phrazzld/lexi-api/internal/domain"
)

// Selector picks the cards a session will study.
type Selector func(ctx context.Context, deck Deck, rng *rand.Rand) ([]*domain.Flashcard, error)

// DueSelector selects the cards due today, oldest review time first.
func DueSelector(ctx context.Context, deck Deck, _ *rand.Rand) ([]*domain.Flashcard, error) {
	return deck.DueCards(ctx, deck.Now())
}

// AllSelector selects every card carrying one of tags, or the whole deck
// when tags is empty.
func AllSelector(tags []string) Selector {
	return func(ctx context.Context, deck Deck, _ *rand.Rand) ([]*domain.Flashcard, error) {
		return deck.AllCards(ctx, tags)
	}
}

// ExamSelector selects a random sample of up to count cards from the whole deck.
func ExamSelector(count int) Selector {
	return func(ctx context.Context, deck Deck, rng *rand.Rand) ([]*domain.Flashcard, error) {
		cards, err := deck.AllCards(ctx, nil)
		if err != nil {
			return nil, err
		}
		n := count
		if n <= 0 || n > len(cards) {
			n = len(cards)
		}

		sample := make([]*domain.Flashcard, 0, n)
		for _, i := range rng.Perm(len(cards))[:n] {
			sample = append(sample, cards[i])
		}
		return sample, nil
	}
}
