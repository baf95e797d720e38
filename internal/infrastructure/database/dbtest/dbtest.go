// Package dbtest opens throwaway SQLite databases with the pmdesk schema
// applied, for use in package tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/mohamed54683/pm-sub003/internal/infrastructure/config"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
	"github.com/mohamed54683/pm-sub003/migrations"
)

// Open returns a migrated database in a temp directory. It is closed when
// the test completes. A temp file is used because WAL mode does not work
// for in-memory databases.
func Open(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "pmdesk-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(t.Context(), migrations.FS); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db
}

// SQL is Open for callers that only need the *sql.DB.
func SQL(t testing.TB) *sql.DB {
	t.Helper()
	return Open(t).DB
}

// Exec runs seed statements and fails the test on error.
func Exec(t testing.TB, db *sql.DB, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		if _, err := db.ExecContext(t.Context(), s); err != nil {
			t.Fatalf("seed %q: %v", s, err)
		}
	}
}
