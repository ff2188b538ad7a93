// Package storetest opens migrated sqlite databases for tests.
package storetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"vpfs.org/internal/store"
)

// Open returns a freshly migrated sqlite database that is closed when t ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vpfs.db")
	db, err := store.Open(store.DriverSQLite, store.SQLiteDSN(path))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(context.Background(), db, store.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
