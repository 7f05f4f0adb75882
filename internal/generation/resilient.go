package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Resilient decorates a remote Provider with throttling, duplicate-call
// suppression and a mandatory fallback. Every method returns the fallback's
// result when the primary fails, so an error only surfaces when the fallback
// fails too.
type Resilient struct {
	primary  Provider
	fallback Provider
	limiter  *rate.Limiter
	group    singleflight.Group
	logger   *slog.Logger
}

// NewResilient creates a Resilient provider. A nil primary serves everything
// from the fallback; a nil limiter disables throttling; a nil fallback uses a
// fresh LocalGenerator.
func NewResilient(primary, fallback Provider, limiter *rate.Limiter, logger *slog.Logger) *Resilient {
	if fallback == nil {
		fallback = NewLocalGenerator(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resilient{
		primary:  primary,
		fallback: fallback,
		limiter:  limiter,
		logger:   logger.With(slog.String("component", "resilient_generator")),
	}
}

// Ensure Resilient implements Provider
var _ Provider = (*Resilient)(nil)

// GenerateDefinition implements ContentGenerator. Concurrent requests for the
// same word and languages share one upstream call.
func (r *Resilient) GenerateDefinition(
	ctx context.Context,
	word, sourceLanguage, targetLanguage string,
) (*WordDefinition, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if r.primary != nil {
		key := "definition|" + strings.ToLower(strings.TrimSpace(word)) + "|" + sourceLanguage + "|" + targetLanguage
		v, err, shared := r.group.Do(key, func() (any, error) {
			if err := r.wait(ctx); err != nil {
				return nil, err
			}
			return r.primary.GenerateDefinition(ctx, word, sourceLanguage, targetLanguage)
		})
		if def, ok := v.(*WordDefinition); err == nil && ok && def != nil {
			log.Debug("definition generated",
				slog.String("word", word),
				slog.Bool("shared", shared))
			out := *def
			return &out, nil
		}
		if err == nil {
			err = fmt.Errorf("%w: empty definition", ErrDecode)
		}
		log.Warn("definition generation failed, using fallback",
			slog.String("word", word),
			slog.String("error", err.Error()))
	}

	def, err := r.fallback.GenerateDefinition(ctx, word, sourceLanguage, targetLanguage)
	if err != nil {
		return nil, fmt.Errorf("fallback definition generation failed: %w", err)
	}
	return def, nil
}

// GenerateQuestion implements QuestionGenerator.
func (r *Resilient) GenerateQuestion(
	ctx context.Context,
	card *domain.Flashcard,
	kind QuestionKind,
	pool []*domain.Flashcard,
) (*QuestionDraft, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if r.primary != nil {
		draft, err := r.primaryQuestion(ctx, card, kind, pool)
		if err == nil && draft != nil {
			return draft, nil
		}
		if err == nil {
			err = fmt.Errorf("%w: empty question", ErrDecode)
		}
		log.Warn("question generation failed, using fallback",
			slog.String("flashcard_id", card.ID.String()),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
	}

	draft, err := r.fallback.GenerateQuestion(ctx, card, kind, pool)
	if err != nil {
		return nil, fmt.Errorf("fallback question generation failed: %w", err)
	}
	return draft, nil
}

func (r *Resilient) primaryQuestion(
	ctx context.Context,
	card *domain.Flashcard,
	kind QuestionKind,
	pool []*domain.Flashcard,
) (*QuestionDraft, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.primary.GenerateQuestion(ctx, card, kind, pool)
}

// ClassifyLevel implements LevelClassifier.
func (r *Resilient) ClassifyLevel(ctx context.Context, word, sourceLanguage string) (domain.CEFRLevel, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	if r.primary != nil {
		key := "level|" + strings.ToLower(strings.TrimSpace(word)) + "|" + sourceLanguage
		v, err, _ := r.group.Do(key, func() (any, error) {
			if err := r.wait(ctx); err != nil {
				return nil, err
			}
			return r.primary.ClassifyLevel(ctx, word, sourceLanguage)
		})
		if level, ok := v.(domain.CEFRLevel); err == nil && ok && level.Valid() {
			return level, nil
		}
		if err == nil {
			err = fmt.Errorf("%w: invalid level %v", ErrDecode, v)
		}
		log.Warn("level classification failed, using fallback",
			slog.String("word", word),
			slog.String("error", err.Error()))
	}

	return r.fallback.ClassifyLevel(ctx, word, sourceLanguage)
}

func (r *Resilient) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return nil
}
