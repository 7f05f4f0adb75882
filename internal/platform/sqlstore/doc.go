// Package sqlstore implements the store interfaces on database/sql.
//
// The same SQL runs against PostgreSQL (through the pgx stdlib driver) and
// SQLite (through modernc.org/sqlite), so queries stick to the common subset:
// positional $N parameters, UTC timestamps, booleans that both engines accept,
// and tags stored as a comma-separated text column. Schema changes live in
// per-dialect goose migrations embedded in the binary.
package sqlstore
