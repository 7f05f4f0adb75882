package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/generation"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"golang.org/x/sync/errgroup"
)

// Generator produces exam questions. Drafts from the primary generator that
// fail or cannot be normalised are replaced by the local generator's draft
// for the same kind.
type Generator struct {
	questions generation.QuestionGenerator
	fallback  generation.QuestionGenerator
	builder   *Builder
	logger    *slog.Logger
}

// NewGenerator creates an exam question generator.
// A nil fallback defaults to generation.NewLocalGenerator.
func NewGenerator(
	questions generation.QuestionGenerator,
	fallback generation.QuestionGenerator,
	builder *Builder,
	logger *slog.Logger,
) *Generator {
	if builder == nil {
		builder = NewBuilder(nil)
	}
	if fallback == nil {
		fallback = generation.NewLocalGenerator(nil)
	}
	if questions == nil {
		questions = fallback
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Generator{
		questions: questions,
		fallback:  fallback,
		builder:   builder,
		logger:    logger.With(slog.String("component", "exam_generator")),
	}
}

// Question builds one question for card, using pool as a source of distractors.
func (g *Generator) Question(
	ctx context.Context,
	card *domain.Flashcard,
	pool []*domain.Flashcard,
) (*Question, error) {
	if card == nil {
		return nil, ErrNoCard
	}

	log := logger.FromContextOrDefault(ctx, g.logger)
	kind := g.builder.RandomKind()

	q, err := g.build(ctx, g.questions, card, kind, pool)
	if err == nil {
		return q, nil
	}
	if errors.Is(err, context.Canceled) {
		return nil, err
	}

	log.Warn("question generation failed, using local question",
		slog.String("word", card.Word),
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()))

	q, fallbackErr := g.build(ctx, g.fallback, card, kind, pool)
	if fallbackErr != nil {
		return nil, fmt.Errorf("local question for %q failed: %w", card.Word, fallbackErr)
	}
	return q, nil
}

func (g *Generator) build(
	ctx context.Context,
	gen generation.QuestionGenerator,
	card *domain.Flashcard,
	kind generation.QuestionKind,
	pool []*domain.Flashcard,
) (*Question, error) {
	draft, err := gen.GenerateQuestion(ctx, card, kind, pool)
	if err != nil {
		return nil, err
	}
	if draft != nil && !draft.Kind.Valid() {
		draft.Kind = kind
	}
	return g.builder.Build(card, draft)
}

// Questions builds one question per card, at most concurrency at a time.
// The result keeps the order of cards.
func (g *Generator) Questions(
	ctx context.Context,
	cards []*domain.Flashcard,
	pool []*domain.Flashcard,
	concurrency int,
) ([]*Question, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	questions := make([]*Question, len(cards))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for i, card := range cards {
		group.Go(func() error {
			q, err := g.Question(gctx, card, pool)
			if err != nil {
				return err
			}
			questions[i] = q
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return questions, nil
}
