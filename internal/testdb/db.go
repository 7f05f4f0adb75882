package testdb

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/phrazzld/lexi-api/internal/config"
	"github.com/phrazzld/lexi-api/internal/platform/sqlstore"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

// DatabaseURLEnv names the variable that switches tests to Postgres.
const DatabaseURLEnv = "LEXI_TEST_DATABASE_URL"

// tables lists every application table, children first.
var tables = []string{"exam_sessions", "flashcards", "users"}

// IsIntegrationTestEnvironment reports whether a Postgres test database is configured.
func IsIntegrationTestEnvironment() bool {
	return os.Getenv(DatabaseURLEnv) != ""
}

// GetTestDBWithT returns a migrated, empty database and closes it when the test ends.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	cfg := config.DatabaseConfig{Driver: "sqlite", URL: "file::memory:", MaxOpenConns: 1}
	dialect := sqlstore.DialectSQLite
	if url := os.Getenv(DatabaseURLEnv); url != "" {
		cfg = config.DatabaseConfig{Driver: "postgres", URL: url, MaxOpenConns: 4}
		dialect = sqlstore.DialectPostgres
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	db, err := sqlstore.Open(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		CleanupDB(t, db)
	})

	if err := sqlstore.Migrate(ctx, db, dialect, "up", logger); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	if dialect == sqlstore.DialectPostgres {
		for _, table := range tables {
			if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				t.Fatalf("Failed to empty table %s: %v", table, err)
			}
		}
	}

	return db
}

// CleanupDB properly closes a database connection, logging any errors.
func CleanupDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if db == nil {
		return
	}

	if err := db.Close(); err != nil {
		t.Logf("Warning: failed to close database connection: %v", err)
	}
}

// WithTx runs fn inside a transaction that is rolled back afterwards,
// leaving the database unchanged.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			t.Logf("Warning: failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}
