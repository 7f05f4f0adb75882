package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/lexi-api/internal/domain"
)

// ExamSessionStore persists the append-only exam history.
type ExamSessionStore interface {
	// Create appends a completed exam.
	Create(ctx context.Context, session *domain.ExamSession) error

	// List returns exams newest first. A limit <= 0 returns all of them.
	List(ctx context.Context, limit int) ([]*domain.ExamSession, error)

	// DeleteAll clears the history and returns how many rows were removed.
	DeleteAll(ctx context.Context) (int64, error)

	// WithTx returns a new ExamSessionStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ExamSessionStore
}
