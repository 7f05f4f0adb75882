package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/phrazzld/lexi-api/internal/store"
)

// ExamSessionStore implements the store.ExamSessionStore interface.
type ExamSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewExamSessionStore creates a new ExamSessionStore.
// If logger is nil, a default logger will be used.
func NewExamSessionStore(db store.DBTX, logger *slog.Logger) *ExamSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &ExamSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "exam_session_store")),
	}
}

// Ensure ExamSessionStore implements store.ExamSessionStore interface
var _ store.ExamSessionStore = (*ExamSessionStore)(nil)

// WithTx implements store.ExamSessionStore.WithTx
func (s *ExamSessionStore) WithTx(tx *sql.Tx) store.ExamSessionStore {
	return &ExamSessionStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ExamSessionStore.Create
func (s *ExamSessionStore) Create(ctx context.Context, session *domain.ExamSession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("exam session validation failed",
			slog.String("error", err.Error()),
			slog.String("exam_id", session.ID.String()))
		return err
	}

	query := `
		INSERT INTO exam_sessions (id, taken_at, total_questions, correct_answers, incorrect_answers, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.Date.UTC(),
		session.TotalQuestions,
		session.CorrectAnswers,
		session.IncorrectAnswers,
		session.Duration.Milliseconds(),
	)
	if err != nil {
		log.Error("failed to create exam session",
			slog.String("error", err.Error()),
			slog.String("exam_id", session.ID.String()))
		return MapError(err)
	}

	log.Info("exam session recorded",
		slog.String("exam_id", session.ID.String()),
		slog.Int("total_questions", session.TotalQuestions),
		slog.Int("correct_answers", session.CorrectAnswers))
	return nil
}

// List implements store.ExamSessionStore.List
func (s *ExamSessionStore) List(ctx context.Context, limit int) ([]*domain.ExamSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, taken_at, total_questions, correct_answers, incorrect_answers, duration_ms
		FROM exam_sessions
		ORDER BY taken_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query exam sessions", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	sessions := []*domain.ExamSession{}
	for rows.Next() {
		var (
			session    domain.ExamSession
			durationMs int64
		)
		if err := rows.Scan(
			&session.ID,
			&session.Date,
			&session.TotalQuestions,
			&session.CorrectAnswers,
			&session.IncorrectAnswers,
			&durationMs,
		); err != nil {
			log.Error("failed to scan exam session row", slog.String("error", err.Error()))
			return nil, err
		}
		session.Date = session.Date.UTC()
		session.Duration = time.Duration(durationMs) * time.Millisecond
		sessions = append(sessions, &session)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	return sessions, nil
}

// DeleteAll implements store.ExamSessionStore.DeleteAll
func (s *ExamSessionStore) DeleteAll(ctx context.Context) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM exam_sessions`)
	if err != nil {
		log.Error("failed to delete exam sessions", slog.String("error", err.Error()))
		return 0, MapError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Info("deleted exam history", slog.Int64("count", n))
	return n, nil
}
