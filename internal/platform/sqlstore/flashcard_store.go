package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/phrazzld/lexi-api/internal/store"
)

const flashcardColumns = `
	id, word, source_language, target_language,
	definition, short_definition, translation, example, phonetics,
	audio_url, cefr_level, tags,
	box, next_review_at, last_studied_at, study_count, correct_count, mastered, difficulty,
	created_at, updated_at`

// FlashcardStore implements the store.FlashcardStore interface with portable
// SQL that runs on both PostgreSQL and SQLite.
type FlashcardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewFlashcardStore creates a new FlashcardStore.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewFlashcardStore(db store.DBTX, logger *slog.Logger) *FlashcardStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &FlashcardStore{
		db:     db,
		logger: logger.With(slog.String("component", "flashcard_store")),
	}
}

// Ensure FlashcardStore implements store.FlashcardStore interface
var _ store.FlashcardStore = (*FlashcardStore)(nil)

// WithTx implements store.FlashcardStore.WithTx
func (s *FlashcardStore) WithTx(tx *sql.Tx) store.FlashcardStore {
	return &FlashcardStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.FlashcardStore.Create
func (s *FlashcardStore) Create(ctx context.Context, card *domain.Flashcard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("flashcard validation failed during create",
			slog.String("error", err.Error()),
			slog.String("flashcard_id", card.ID.String()))
		return err
	}

	query := `
		INSERT INTO flashcards (` + flashcardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err := s.db.ExecContext(ctx, query,
		card.ID,
		card.Word,
		card.SourceLanguage,
		card.TargetLanguage,
		card.Definition,
		card.ShortDefinition,
		card.Translation,
		card.Example,
		card.Phonetics,
		nullString(card.AudioURL),
		nullCEFR(card.CEFRLevel),
		domain.JoinTags(card.Tags),
		card.Box,
		card.NextReviewAt.UTC(),
		nullTime(card.LastStudiedAt),
		card.StudyCount,
		card.CorrectCount,
		card.Mastered,
		card.Difficulty,
		card.CreatedAt.UTC(),
		card.UpdatedAt.UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate word during flashcard creation",
				slog.String("word", card.Word),
				slog.String("source_language", card.SourceLanguage))
			return MapUniqueViolation(err, store.ErrWordExists)
		}

		log.Error("failed to create flashcard",
			slog.String("error", err.Error()),
			slog.String("flashcard_id", card.ID.String()))
		return MapError(err)
	}

	log.Debug("flashcard created",
		slog.String("flashcard_id", card.ID.String()),
		slog.String("word", card.Word))
	return nil
}

// GetByID implements store.FlashcardStore.GetByID
func (s *FlashcardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + flashcardColumns + ` FROM flashcards WHERE id = $1`

	card, err := scanFlashcard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("flashcard not found", slog.String("flashcard_id", id.String()))
			return nil, store.ErrFlashcardNotFound
		}
		log.Error("failed to get flashcard by ID",
			slog.String("error", err.Error()),
			slog.String("flashcard_id", id.String()))
		return nil, MapError(err)
	}

	return card, nil
}

// Update implements store.FlashcardStore.Update
func (s *FlashcardStore) Update(ctx context.Context, card *domain.Flashcard) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("flashcard validation failed during update",
			slog.String("error", err.Error()),
			slog.String("flashcard_id", card.ID.String()))
		return err
	}

	query := `
		UPDATE flashcards SET
			word = $2, source_language = $3, target_language = $4,
			definition = $5, short_definition = $6, translation = $7, example = $8, phonetics = $9,
			audio_url = $10, cefr_level = $11, tags = $12,
			box = $13, next_review_at = $14, last_studied_at = $15,
			study_count = $16, correct_count = $17, mastered = $18, difficulty = $19,
			updated_at = $20
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		card.ID,
		card.Word,
		card.SourceLanguage,
		card.TargetLanguage,
		card.Definition,
		card.ShortDefinition,
		card.Translation,
		card.Example,
		card.Phonetics,
		nullString(card.AudioURL),
		nullCEFR(card.CEFRLevel),
		domain.JoinTags(card.Tags),
		card.Box,
		card.NextReviewAt.UTC(),
		nullTime(card.LastStudiedAt),
		card.StudyCount,
		card.CorrectCount,
		card.Mastered,
		card.Difficulty,
		card.UpdatedAt.UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return MapUniqueViolation(err, store.ErrWordExists)
		}
		log.Error("failed to update flashcard",
			slog.String("error", err.Error()),
			slog.String("flashcard_id", card.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrFlashcardNotFound); err != nil {
		log.Debug("flashcard not found for update", slog.String("flashcard_id", card.ID.String()))
		return err
	}

	log.Debug("flashcard updated",
		slog.String("flashcard_id", card.ID.String()),
		slog.Int("box", card.Box),
		slog.Bool("mastered", card.Mastered))
	return nil
}

// Delete implements store.FlashcardStore.Delete
func (s *FlashcardStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM flashcards WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete flashcard",
			slog.String("error", err.Error()),
			slog.String("flashcard_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrFlashcardNotFound); err != nil {
		return err
	}

	log.Debug("flashcard deleted", slog.String("flashcard_id", id.String()))
	return nil
}

// ListDue implements store.FlashcardStore.ListDue
func (s *FlashcardStore) ListDue(ctx context.Context, from, to time.Time) ([]*domain.Flashcard, error) {
	query := `
		SELECT ` + flashcardColumns + `
		FROM flashcards
		WHERE mastered = $1 AND next_review_at >= $2 AND next_review_at < $3
		ORDER BY next_review_at ASC, id ASC
	`
	return s.list(ctx, "due", query, false, from.UTC(), to.UTC())
}

// ListAll implements store.FlashcardStore.ListAll
func (s *FlashcardStore) ListAll(ctx context.Context) ([]*domain.Flashcard, error) {
	query := `SELECT ` + flashcardColumns + ` FROM flashcards ORDER BY created_at DESC, id DESC`
	return s.list(ctx, "all", query)
}

// ListMastered implements store.FlashcardStore.ListMastered
func (s *FlashcardStore) ListMastered(ctx context.Context) ([]*domain.Flashcard, error) {
	query := `
		SELECT ` + flashcardColumns + `
		FROM flashcards
		WHERE mastered = $1
		ORDER BY created_at DESC, id DESC
	`
	return s.list(ctx, "mastered", query, true)
}

// ListMissingCEFR implements store.FlashcardStore.ListMissingCEFR
func (s *FlashcardStore) ListMissingCEFR(ctx context.Context) ([]*domain.Flashcard, error) {
	query := `
		SELECT ` + flashcardColumns + `
		FROM flashcards
		WHERE cefr_level IS NULL OR cefr_level = ''
		ORDER BY created_at ASC, id ASC
	`
	return s.list(ctx, "missing_cefr", query)
}

// ExistsWord implements store.FlashcardStore.ExistsWord
func (s *FlashcardStore) ExistsWord(ctx context.Context, word, sourceLanguage string) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM flashcards WHERE lower(word) = lower($1) AND source_language = $2`,
		word, sourceLanguage,
	).Scan(&count)
	if err != nil {
		log.Error("failed to check for existing word",
			slog.String("error", err.Error()),
			slog.String("word", word))
		return false, MapError(err)
	}

	return count > 0, nil
}

// Count implements store.FlashcardStore.Count
func (s *FlashcardStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM flashcards`).Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// DeleteAll implements store.FlashcardStore.DeleteAll
func (s *FlashcardStore) DeleteAll(ctx context.Context) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM flashcards`)
	if err != nil {
		log.Error("failed to delete all flashcards", slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Info("deleted all flashcards", slog.Int64("count", n))
	return n, nil
}

func (s *FlashcardStore) list(ctx context.Context, name, query string, args ...any) ([]*domain.Flashcard, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query flashcards",
			slog.String("error", err.Error()),
			slog.String("query", name))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	cards := []*domain.Flashcard{}
	for rows.Next() {
		card, err := scanFlashcard(rows)
		if err != nil {
			log.Error("failed to scan flashcard row", slog.String("error", err.Error()))
			return nil, err
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("listed flashcards",
		slog.String("query", name),
		slog.Int("count", len(cards)))
	return cards, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlashcard(row rowScanner) (*domain.Flashcard, error) {
	var (
		card        domain.Flashcard
		audioURL    sql.NullString
		cefr        sql.NullString
		tags        string
		lastStudied sql.NullTime
	)

	err := row.Scan(
		&card.ID,
		&card.Word,
		&card.SourceLanguage,
		&card.TargetLanguage,
		&card.Definition,
		&card.ShortDefinition,
		&card.Translation,
		&card.Example,
		&card.Phonetics,
		&audioURL,
		&cefr,
		&tags,
		&card.Box,
		&card.NextReviewAt,
		&lastStudied,
		&card.StudyCount,
		&card.CorrectCount,
		&card.Mastered,
		&card.Difficulty,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if audioURL.Valid {
		card.AudioURL = &audioURL.String
	}
	if cefr.Valid && cefr.String != "" {
		level := domain.CEFRLevel(cefr.String)
		card.CEFRLevel = &level
	}
	if lastStudied.Valid {
		t := lastStudied.Time.UTC()
		card.LastStudiedAt = &t
	}
	card.Tags = domain.SplitTags(tags)
	card.NextReviewAt = card.NextReviewAt.UTC()
	card.CreatedAt = card.CreatedAt.UTC()
	card.UpdatedAt = card.UpdatedAt.UTC()

	return &card, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullCEFR(l *domain.CEFRLevel) sql.NullString {
	if l == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*l), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
