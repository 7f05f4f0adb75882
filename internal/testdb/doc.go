// Package testdb provides migrated databases for tests.
//
// By default every call to GetTestDBWithT returns a private in-memory SQLite
// database with the real migrations applied, so tests need no external
// services and can run in parallel. When LEXI_TEST_DATABASE_URL is set the
// same helpers run against that Postgres database instead; its tables are
// emptied before each test, so Postgres-backed tests must not use t.Parallel.
//
// Basic usage:
//
//	func TestMyFeature(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    cards := sqlstore.NewFlashcardStore(db, logger)
//	    ...
//	}
//
// WithTx runs a function inside a transaction that is always rolled back.
package testdb
