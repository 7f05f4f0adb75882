package exam

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/generation"
)

// ErrNoCard is returned when a question is built without a source card.
var ErrNoCard = errors.New("question requires a flashcard")

// Builder normalises drafts into Questions. It is safe for concurrent use.
type Builder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBuilder creates a Builder shuffling with rng. A nil rng is seeded from the clock.
func NewBuilder(rng *rand.Rand) *Builder {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Builder{rng: rng}
}

// RandomKind picks a question kind uniformly at random.
func (b *Builder) RandomKind() generation.QuestionKind {
	b.mu.Lock()
	defer b.mu.Unlock()
	return generation.RandomKind(b.rng)
}

// Build turns a draft into a Question for card. The draft's correct option is
// kept; blank and duplicate options (ignoring case) are dropped, missing ones
// are padded with placeholders and extras are cut before the options are shuffled.
func (b *Builder) Build(card *domain.Flashcard, draft *generation.QuestionDraft) (*Question, error) {
	if card == nil {
		return nil, ErrNoCard
	}
	if draft == nil {
		return nil, fmt.Errorf("%w: nil question draft", generation.ErrDecode)
	}

	answer, err := draft.Answer()
	if err != nil {
		return nil, err
	}

	options := distinctOptions(answer, draft.Options, placeholders(draft.Kind))

	b.mu.Lock()
	perm := b.rng.Perm(OptionCount)
	b.mu.Unlock()

	q := &Question{
		Prompt: strings.TrimSpace(draft.Prompt),
		Card:   card,
		Kind:   draft.Kind,
		Hint:   TruncateHint(draft.Hint),
	}
	if q.Prompt == "" {
		q.Prompt = fmt.Sprintf("Which option matches '%s'?", card.Word)
	}
	if !q.Kind.Valid() {
		q.Kind = generation.KindDefinition
	}

	// options[0] is the answer, so its new position is wherever perm sends 0.
	for from, to := range perm {
		q.Options[to] = options[from]
		if from == 0 {
			q.CorrectIndex = to
		}
	}

	return q, nil
}

// distinctOptions returns exactly OptionCount options with answer first.
func distinctOptions(answer string, drafted, padding []string) []string {
	options := make([]string, 0, OptionCount)
	seen := make(map[string]struct{}, OptionCount)

	add := func(option string) {
		option = strings.TrimSpace(option)
		key := strings.ToLower(option)
		if option == "" || len(options) == OptionCount {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		options = append(options, option)
	}

	add(answer)
	for _, option := range drafted {
		add(option)
	}
	for _, option := range padding {
		add(option)
	}
	for n := 1; len(options) < OptionCount; n++ {
		add(fmt.Sprintf("Option %d", n))
	}

	return options
}

// placeholders returns the padding distractors that suit a question kind.
func placeholders(kind generation.QuestionKind) []string {
	switch kind {
	case generation.KindDefinition, generation.KindWordDifferent:
		return generation.FallbackDistractors
	default:
		return generation.WordDistractors
	}
}

// TruncateHint shortens hint to MaxHintLength characters, ending with "...".
func TruncateHint(hint string) string {
	hint = strings.TrimSpace(hint)
	runes := []rune(hint)
	if len(runes) <= MaxHintLength {
		return hint
	}
	return string(runes[:MaxHintLength-3]) + "..."
}
