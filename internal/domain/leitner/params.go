package leitner

import (
	"time"

	"github.com/phrazzld/lexi-api/internal/domain"
)

// Params defines all configurable parameters for the Leitner scheduler
type Params struct {
	// Box limits, fixed by the domain model
	MinBox int
	MaxBox int

	// Boxes an answer moves a card forward
	BoxAdvance map[domain.AnswerOutcome]int

	// A Hard answer sends the card back to MinBox and resurfaces it after this delay
	HardRetryDelay time.Duration

	// Mastery requires MaxBox and at least this success rate
	MasteryThreshold float64

	// Flat per-answer reward table used by study sessions
	Points map[domain.AnswerOutcome]int

	// Bonus for a card that becomes mastered
	MasteryBonus int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	GoodBoxAdvance int
	EasyBoxAdvance int

	HardRetryDelay time.Duration

	MasteryThreshold float64

	HardPoints   int
	GoodPoints   int
	EasyPoints   int
	MasteryBonus int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		MinBox: domain.MinBox,
		MaxBox: domain.MaxBox,

		BoxAdvance: map[domain.AnswerOutcome]int{
			domain.OutcomeGood: 1,
			domain.OutcomeEasy: 2, // one extra step on top of Good
		},

		HardRetryDelay: time.Hour,

		MasteryThreshold: domain.MasteryThreshold,

		Points: map[domain.AnswerOutcome]int{
			domain.OutcomeHard: 5,
			domain.OutcomeGood: 10,
			domain.OutcomeEasy: 15,
		},

		MasteryBonus: 50,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.GoodBoxAdvance > 0 {
		params.BoxAdvance[domain.OutcomeGood] = config.GoodBoxAdvance
	}
	if config.EasyBoxAdvance > 0 {
		params.BoxAdvance[domain.OutcomeEasy] = config.EasyBoxAdvance
	}

	if config.HardRetryDelay > 0 {
		params.HardRetryDelay = config.HardRetryDelay
	}

	if config.MasteryThreshold > 0 && config.MasteryThreshold <= 1 {
		params.MasteryThreshold = config.MasteryThreshold
	}

	if config.HardPoints > 0 {
		params.Points[domain.OutcomeHard] = config.HardPoints
	}
	if config.GoodPoints > 0 {
		params.Points[domain.OutcomeGood] = config.GoodPoints
	}
	if config.EasyPoints > 0 {
		params.Points[domain.OutcomeEasy] = config.EasyPoints
	}
	if config.MasteryBonus > 0 {
		params.MasteryBonus = config.MasteryBonus
	}

	return params
}

// PointsFor returns the session reward for one answer.
func (p *Params) PointsFor(outcome domain.AnswerOutcome) int {
	return p.Points[outcome]
}
