package generation

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/lexi-api/internal/domain"
)

// Blank replaces the target word in fill-in-the-blank sentences.
const Blank = "______"

// FallbackDistractors are the wrong answers used for definition questions
// when no better distractors are available.
var FallbackDistractors = []string{
	"A completely different concept",
	"The opposite meaning",
	"A related but incorrect definition",
}

// WordDistractors pad word-choice questions when the pool is too small.
var WordDistractors = []string{"alternative", "different", "another"}

// commonWordLevels is a small lookup of frequent English words by CEFR level.
var commonWordLevels = map[domain.CEFRLevel][]string{
	domain.CEFRA1: {"hello", "goodbye", "yes", "no", "please", "thank", "sorry", "book", "water", "food", "house", "car", "friend", "family", "day", "night", "time", "year", "week", "month"},
	domain.CEFRA2: {"beautiful", "different", "important", "difficult", "easy", "happy", "sad", "tired", "hungry", "thirsty", "study", "learn", "understand", "remember", "forget"},
	domain.CEFRB1: {"achieve", "agree", "arrive", "believe", "compare", "complain", "describe", "discuss", "explain", "suggest", "appreciate", "consider", "decide", "develop", "discover"},
	domain.CEFRB2: {"analyze", "approach", "assume", "challenge", "characterize", "clarify", "comprehend", "conclude", "demonstrate", "establish", "evaluate", "examine", "illustrate", "indicate", "interpret"},
	domain.CEFRC1: {"accomplish", "acknowledge", "acquisition", "ambiguous", "analytical", "articulate", "comprehensive", "consolidate", "contemporary", "distinguished", "elaborate", "fundamental", "hypothesis", "methodology", "philosophical"},
	domain.CEFRC2: {"aberration", "abstruse", "ambivalent", "circumvent", "conundrum", "dichotomy", "ephemeral", "esoteric", "paradigm", "quintessential", "ubiquitous", "voracious"},
}

var complexSuffix = regexp.MustCompile(`(tion|sion|ment|ness|ity|ous)$`)

// LocalGenerator is the offline Provider. It never calls the network and
// never fails for a well-formed card, which makes it the fallback of last resort.
type LocalGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLocalGenerator creates a LocalGenerator. A nil rng is seeded from the clock.
func NewLocalGenerator(rng *rand.Rand) *LocalGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &LocalGenerator{rng: rng}
}

// Ensure LocalGenerator implements Provider
var _ Provider = (*LocalGenerator)(nil)

// GenerateDefinition returns placeholder content the learner can edit later.
func (g *LocalGenerator) GenerateDefinition(
	ctx context.Context,
	word, sourceLanguage, targetLanguage string,
) (*WordDefinition, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, fmt.Errorf("%w: word cannot be empty", ErrInvalidConfig)
	}

	return &WordDefinition{
		Word:            word,
		Definition:      fmt.Sprintf("%q is a %s word. Add your own definition.", word, sourceLanguage),
		ShortDefinition: word,
		Translation:     word,
		Example:         "",
		Phonetics:       "/" + strings.ToLower(word) + "/",
	}, nil
}

// ClassifyLevel looks the word up in a list of common words and otherwise
// estimates the level from word length and suffix.
func (g *LocalGenerator) ClassifyLevel(ctx context.Context, word, sourceLanguage string) (domain.CEFRLevel, error) {
	lower := strings.ToLower(strings.TrimSpace(word))
	if lower == "" {
		return "", fmt.Errorf("%w: word cannot be empty", ErrInvalidConfig)
	}

	for _, level := range domain.CEFRLevels {
		for _, common := range commonWordLevels[level] {
			if common == lower {
				return level, nil
			}
		}
	}

	length := len([]rune(lower))
	hasSuffix := complexSuffix.MatchString(lower)
	switch {
	case length <= 3:
		return domain.CEFRA1, nil
	case length <= 4:
		return domain.CEFRA2, nil
	case length <= 6 && !hasSuffix:
		return domain.CEFRA2, nil
	case length <= 8 && hasSuffix:
		return domain.CEFRB2, nil
	case length <= 8:
		return domain.CEFRB1, nil
	case length <= 12:
		return domain.CEFRC1, nil
	default:
		return domain.CEFRC2, nil
	}
}

// GenerateQuestion builds a question from the card's own content.
// The correct option is always first; exam.Builder shuffles.
func (g *LocalGenerator) GenerateQuestion(
	ctx context.Context,
	card *domain.Flashcard,
	kind QuestionKind,
	pool []*domain.Flashcard,
) (*QuestionDraft, error) {
	if card == nil || strings.TrimSpace(card.Word) == "" {
		return nil, fmt.Errorf("%w: card has no word", ErrInvalidConfig)
	}

	meaning := shortMeaning(card)

	switch kind {
	case KindDefinition, KindWordDifferent:
		return g.definitionQuestion(card, meaning), nil

	case KindWordSimilar:
		return &QuestionDraft{
			Prompt:  fmt.Sprintf("Which word is most similar to '%s'?", card.Word),
			Options: append([]string{card.Word}, g.poolWords(card, pool)...),
			Hint:    fmt.Sprintf("Look for synonyms of '%s' which means '%s'.", card.Word, meaning),
			Kind:    KindWordSimilar,
		}, nil

	case KindContextScenario:
		scenario := card.Example
		if strings.TrimSpace(scenario) == "" {
			scenario = fmt.Sprintf("In a situation where you need to express '%s'", meaning)
		} else {
			scenario = blankOut(scenario, card.Word)
		}
		return &QuestionDraft{
			Prompt:  fmt.Sprintf("Which word would be used to say '%s'?", scenario),
			Options: append([]string{card.Word}, g.poolWords(card, pool)...),
			Hint:    fmt.Sprintf("Use '%s' (%s) in this scenario.", card.Word, meaning),
			Kind:    KindContextScenario,
		}, nil

	case KindFillInBlank:
		sentence := blankOut(card.Example, card.Word)
		if !strings.Contains(sentence, Blank) {
			sentence = fmt.Sprintf("The word that means '%s' is %s.", meaning, Blank)
		}
		return &QuestionDraft{
			Prompt:  fmt.Sprintf("Complete the sentence: '%s'", sentence),
			Options: append([]string{card.Word}, g.poolWords(card, pool)...),
			Hint:    fmt.Sprintf("Fill the blank with '%s' (%s).", card.Word, meaning),
			Kind:    KindFillInBlank,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown question kind %q", ErrInvalidConfig, kind)
	}
}

func (g *LocalGenerator) definitionQuestion(card *domain.Flashcard, meaning string) *QuestionDraft {
	answer := strings.TrimSpace(card.Definition)
	if answer == "" {
		answer = meaning
	}

	options := append([]string{answer}, FallbackDistractors...)
	return &QuestionDraft{
		Prompt:  fmt.Sprintf("What is the meaning of '%s'?", card.Word),
		Options: options,
		Hint:    fmt.Sprintf("'%s' means: %s.", card.Word, meaning),
		Kind:    KindDefinition,
	}
}

// poolWords picks three distractor words, preferring other cards in the exam.
func (g *LocalGenerator) poolWords(card *domain.Flashcard, pool []*domain.Flashcard) []string {
	candidates := otherWords(card, pool, len(pool))

	g.mu.Lock()
	g.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	g.mu.Unlock()

	if len(candidates) > 3 {
		candidates = candidates[:3]
	}
	for _, w := range WordDistractors {
		if len(candidates) == 3 {
			break
		}
		if !strings.EqualFold(w, card.Word) {
			candidates = append(candidates, w)
		}
	}
	return candidates
}

func shortMeaning(card *domain.Flashcard) string {
	for _, s := range []string{card.ShortDefinition, card.Translation, card.Definition} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return card.Word
}

// blankOut replaces every case-insensitive occurrence of word with Blank.
func blankOut(sentence, word string) string {
	if strings.TrimSpace(sentence) == "" || strings.TrimSpace(word) == "" {
		return sentence
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(word))
	return re.ReplaceAllString(sentence, Blank)
}
