package sqlstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/phrazzld/lexi-api/internal/config"
	"github.com/phrazzld/lexi-api/internal/domain"
	"github.com/phrazzld/lexi-api/internal/platform/logger"
	"github.com/stretchr/testify/require"
)

// openTestDB returns a migrated private in-memory SQLite database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	log, _ := logger.NewTestLogger()
	ctx := context.Background()

	db, err := Open(ctx, config.DatabaseConfig{Driver: "sqlite", URL: "file::memory:"}, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, Migrate(ctx, db, DialectSQLite, "up", log))
	return db
}

func newTestCard(t *testing.T, word string, now time.Time) *domain.Flashcard {
	t.Helper()

	card, err := domain.NewFlashcard(domain.FlashcardParams{
		Word:           word,
		SourceLanguage: "English",
		TargetLanguage: "Spanish",
		Definition:     "definition of " + word,
		Translation:    word + "-es",
		Tags:           []string{"test"},
	}, now)
	require.NoError(t, err)
	return card
}
