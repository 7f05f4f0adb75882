// Package deck manages the learner's flashcards: adding words with generated
// content, the due and all-cards queries of the Leitner engine, and persisting
// answers one card at a time.
package deck

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/domain/leitner"
	"github.com/phrazzld/lexi-api/internal/generation"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/phrazzld/lexi-api/internal/store"
)

// AllWordsTag is the implicit tag every card belongs to. It is never stored;
// filtering by it matches the whole deck.
const AllWordsTag = "all words"

// Generator writes content and CEFR levels for new words.
type Generator interface {
	generation.ContentGenerator
	generation.LevelClassifier
}

// AddWordRequest describes a word to add to the deck.
type AddWordRequest struct {
	Word           string
	SourceLanguage string
	TargetLanguage string
	Tags           []string

	// Content skips generation when set.
	Content *generation.WordDefinition

	// CEFRLevel skips classification when set.
	CEFRLevel *domain.CEFRLevel
}

// UpdateRequest changes a card's content. Nil fields are left as they are.
type UpdateRequest struct {
	Definition      *string
	ShortDefinition *string
	Translation     *string
	Example         *string
	Phonetics       *string
	CEFRLevel       *domain.CEFRLevel
	Tags            *[]string
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone that decides where a study day starts.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// Service is the deck of flashcards.
type Service struct {
	db        store.Beginner
	cards     store.FlashcardStore
	scheduler leitner.Service
	generator Generator
	location  *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a deck service. A nil generator falls back to the
// offline generation.LocalGenerator.
func NewService(
	db store.Beginner,
	cards store.FlashcardStore,
	scheduler leitner.Service,
	generator Generator,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if db == nil {
		panic("db cannot be nil")
	}
	if cards == nil {
		panic("cards cannot be nil")
	}
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if generator == nil {
		generator = generation.NewLocalGenerator(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		db:        db,
		cards:     cards,
		scheduler: scheduler,
		generator: generator,
		location:  time.UTC,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "deck_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// Location returns the time zone of the study day.
func (s *Service) Location() *time.Location {
	return s.location
}

// Scheduler exposes the Leitner scheduler the deck applies.
func (s *Service) Scheduler() leitner.Service {
	return s.scheduler
}

// AddWord creates a card for a new word. Duplicates are rejected before any
// generator call. Content and level generation never fail the request while
// the generator can fall back; a failed classification leaves the level empty.
func (s *Service) AddWord(ctx context.Context, req AddWordRequest) (*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	word := strings.TrimSpace(req.Word)
	if word == "" {
		return nil, NewServiceError("add_word", "invalid word", domain.ErrEmptyWord)
	}

	exists, err := s.cards.ExistsWord(ctx, word, req.SourceLanguage)
	if err != nil {
		log.Error("failed to check for duplicate word",
			slog.String("error", err.Error()),
			slog.String("word", word))
		return nil, NewServiceError("add_word", "failed to check for duplicates", err)
	}
	if exists {
		log.Debug("word already in deck", slog.String("word", word))
		return nil, ErrDuplicateWord
	}

	content := req.Content
	if content == nil {
		content, err = s.generator.GenerateDefinition(ctx, word, req.SourceLanguage, req.TargetLanguage)
		if err != nil {
			log.Error("failed to generate word content",
				slog.String("error", err.Error()),
				slog.String("word", word))
			return nil, NewServiceError("add_word", "failed to generate content", err)
		}
		if content == nil {
			return nil, NewServiceError("add_word", "failed to generate content", generation.ErrDecode)
		}
	}

	level := req.CEFRLevel
	if level == nil {
		level = s.classify(ctx, word, req.SourceLanguage)
	}

	card, err := domain.NewFlashcard(domain.FlashcardParams{
		Word:            word,
		SourceLanguage:  req.SourceLanguage,
		TargetLanguage:  req.TargetLanguage,
		Definition:      content.Definition,
		ShortDefinition: content.ShortDefinition,
		Translation:     content.Translation,
		Example:         content.Example,
		Phonetics:       content.Phonetics,
		CEFRLevel:       level,
		Tags:            withoutAllWords(req.Tags),
	}, s.now())
	if err != nil {
		return nil, NewServiceError("add_word", "invalid card", err)
	}

	if err := s.cards.Create(ctx, card); err != nil {
		if errors.Is(err, store.ErrWordExists) {
			return nil, ErrDuplicateWord
		}
		log.Error("failed to save new card",
			slog.String("error", err.Error()),
			slog.String("word", word))
		return nil, NewServiceError("add_word", "failed to save card", err)
	}

	log.Info("word added",
		slog.String("card_id", card.ID.String()),
		slog.String("word", card.Word))
	return card, nil
}

// AddCard stores a fully built card, such as one read from an import file.
func (s *Service) AddCard(ctx context.Context, card *domain.Flashcard) error {
	if card == nil {
		return NewServiceError("add_card", "invalid card", leitner.ErrNilCard)
	}
	card.Word = strings.TrimSpace(card.Word)
	card.Tags = withoutAllWords(card.Tags)
	if err := card.Validate(); err != nil {
		return NewServiceError("add_card", "invalid card", err)
	}

	if err := s.cards.Create(ctx, card); err != nil {
		if errors.Is(err, store.ErrWordExists) {
			return ErrDuplicateWord
		}
		return NewServiceError("add_card", "failed to save card", err)
	}
	return nil
}

func (s *Service) classify(ctx context.Context, word, sourceLanguage string) *domain.CEFRLevel {
	level, err := s.generator.ClassifyLevel(ctx, word, sourceLanguage)
	if err != nil || !level.Valid() {
		msg := "invalid level"
		if err != nil {
			msg = err.Error()
		}
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to classify word level",
			slog.String("word", word),
			slog.String("error", msg))
		return nil
	}
	return &level
}

// Get returns one card.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error) {
	card, err := s.cards.GetByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrCardNotFound
		}
		return nil, NewServiceError("get_card", "failed to load card", err)
	}
	return card, nil
}

// DueCards returns the non-mastered cards scheduled on asOf's study day,
// earliest first. The day runs from midnight to midnight in the service's
// location.
func (s *Service) DueCards(ctx context.Context, asOf time.Time) ([]*domain.Flashcard, error) {
	start, end := domain.StudyDay(asOf, s.location)

	cards, err := s.cards.ListDue(ctx, start, end)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list due cards",
			slog.String("error", err.Error()),
			slog.Time("day_start", start))
		return nil, NewServiceError("due_cards", "failed to list due cards", err)
	}
	return cards, nil
}

// DueToday returns DueCards for the current study day.
func (s *Service) DueToday(ctx context.Context) ([]*domain.Flashcard, error) {
	return s.DueCards(ctx, s.now())
}

// AllCards returns every card, newest first, keeping only cards that carry at
// least one of tags. No tags, or AllWordsTag, selects the whole deck.
func (s *Service) AllCards(ctx context.Context, tags []string) ([]*domain.Flashcard, error) {
	cards, err := s.cards.ListAll(ctx)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list cards",
			slog.String("error", err.Error()))
		return nil, NewServiceError("all_cards", "failed to list cards", err)
	}

	filter := domain.NormalizeTags(tags)
	for _, tag := range filter {
		if tag == AllWordsTag {
			return cards, nil
		}
	}
	if len(filter) == 0 {
		return cards, nil
	}

	matched := make([]*domain.Flashcard, 0, len(cards))
	for _, card := range cards {
		if card.HasAnyTag(filter) {
			matched = append(matched, card)
		}
	}
	return matched, nil
}

// Tags returns every tag in use, in order of first appearance from newest card.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	cards, err := s.AllCards(ctx, nil)
	if err != nil {
		return nil, err
	}
	var all []string
	for _, card := range cards {
		all = append(all, card.Tags...)
	}
	return domain.NormalizeTags(all), nil
}

// RecordAnswer applies an answer to a card and saves it in one transaction.
func (s *Service) RecordAnswer(
	ctx context.Context,
	id uuid.UUID,
	outcome domain.AnswerOutcome,
) (*leitner.Transition, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !outcome.Valid() {
		return nil, NewServiceError("record_answer", "invalid outcome", domain.ErrInvalidOutcome)
	}

	var transition *leitner.Transition
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)

		card, err := cards.GetByID(ctx, id)
		if err != nil {
			return err
		}

		transition, err = s.scheduler.RecordAnswer(card, outcome, s.now().UTC())
		if err != nil {
			return err
		}

		return cards.Update(ctx, transition.Card)
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrCardNotFound
		}
		log.Error("failed to record answer",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()),
			slog.String("outcome", string(outcome)))
		return nil, NewServiceError("record_answer", "failed to save answer", err)
	}

	log.Debug("answer recorded",
		slog.String("card_id", id.String()),
		slog.String("outcome", string(outcome)),
		slog.Int("box", transition.Card.Box),
		slog.Bool("became_mastered", transition.BecameMastered))
	return transition, nil
}

// MarkStudied records a review-only answer: only the last studied time changes.
func (s *Service) MarkStudied(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error) {
	var studied *domain.Flashcard
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)

		card, err := cards.GetByID(ctx, id)
		if err != nil {
			return err
		}

		studied, err = s.scheduler.MarkStudied(card, s.now().UTC())
		if err != nil {
			return err
		}
		return cards.Update(ctx, studied)
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrCardNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to mark card studied",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, NewServiceError("mark_studied", "failed to save card", err)
	}
	return studied, nil
}

// Update edits a card's content. Scheduling state is never touched here.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*domain.Flashcard, error) {
	if req.CEFRLevel != nil && !req.CEFRLevel.Valid() {
		return nil, NewServiceError("update_card", "invalid card", domain.ErrInvalidCEFRLevel)
	}

	var updated *domain.Flashcard
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)

		card, err := cards.GetByID(ctx, id)
		if err != nil {
			return err
		}

		setIf(&card.Definition, req.Definition)
		setIf(&card.ShortDefinition, req.ShortDefinition)
		setIf(&card.Translation, req.Translation)
		setIf(&card.Example, req.Example)
		setIf(&card.Phonetics, req.Phonetics)
		if req.CEFRLevel != nil {
			level := *req.CEFRLevel
			card.CEFRLevel = &level
		}
		if req.Tags != nil {
			card.Tags = withoutAllWords(*req.Tags)
		}
		card.UpdatedAt = s.now().UTC()

		updated = card
		return cards.Update(ctx, card)
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrCardNotFound
		}
		return nil, NewServiceError("update_card", "failed to save card", err)
	}
	return updated, nil
}

// Delete removes a card.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.cards.Delete(ctx, id); err != nil {
		if store.IsNotFoundError(err) {
			return ErrCardNotFound
		}
		return NewServiceError("delete_card", "failed to delete card", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("card deleted", slog.String("card_id", id.String()))
	return nil
}

// BackfillCEFR classifies every card that has no CEFR level and returns how
// many were updated. Cards that cannot be classified or saved are skipped.
func (s *Service) BackfillCEFR(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cards, err := s.cards.ListMissingCEFR(ctx)
	if err != nil {
		return 0, NewServiceError("backfill_cefr", "failed to list cards", err)
	}

	updated := 0
	for _, card := range cards {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		level := s.classify(ctx, card.Word, card.SourceLanguage)
		if level == nil {
			continue
		}
		card.CEFRLevel = level
		card.UpdatedAt = s.now().UTC()

		if err := s.cards.Update(ctx, card); err != nil {
			log.Warn("failed to save CEFR level",
				slog.String("card_id", card.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		updated++
	}

	log.Info("CEFR backfill finished",
		slog.Int("candidates", len(cards)),
		slog.Int("updated", updated))
	return updated, nil
}

func setIf(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func withoutAllWords(tags []string) []string {
	normalized := domain.NormalizeTags(tags)
	out := normalized[:0]
	for _, tag := range normalized {
		if tag != AllWordsTag {
			out = append(out, tag)
		}
	}
	return out
}
