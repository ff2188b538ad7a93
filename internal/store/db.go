package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to driver at dsn and tunes the pool for it.
func Open(driverName, dsn string) (*sql.DB, error) {
	switch driverName {
	case DriverPostgres:
		db, err := sql.Open(postgresDriverName, dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(15 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
		return db, nil
	case DriverSQLite:
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// sqlite serialises writers; one connection avoids SQLITE_BUSY under the async audit writes.
		db.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driverName)
	}
}

// SQLiteDSN builds a modernc DSN for a database file with the pragmas the service relies on.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}

// Ping verifies the database answers within the context deadline.
func Ping(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("store: nil db")
	}
	return db.PingContext(ctx)
}
