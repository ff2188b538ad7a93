package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// NewMigrator returns a goose provider over the embedded migrations of driver.
func NewMigrator(db *sql.DB, driverName string) (*goose.Provider, error) {
	var (
		dialect database.Dialect
		dir     string
	)
	switch driverName {
	case DriverPostgres:
		dialect, dir = database.DialectPostgres, "migrations/postgres"
	case DriverSQLite:
		dialect, dir = database.DialectSQLite3, "migrations/sqlite"
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driverName)
	}
	fsys, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(dialect, db, fsys)
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sql.DB, driverName string) error {
	p, err := NewMigrator(db, driverName)
	if err != nil {
		return err
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}
