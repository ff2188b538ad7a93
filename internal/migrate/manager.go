// Package migrate drives schema migrations and the bootstrap seed for the CLI.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"

	"vpfs.org/internal/auth"
	"vpfs.org/internal/store"
)

// Manager executes the embedded migrations of one driver and seeds the
// default administrator.
type Manager struct {
	db       *sql.DB
	provider *goose.Provider
	seedPass string
}

// Option configures Manager.
type Option func(*Manager)

// WithAdminPassword sets the password of the seeded administrator.
func WithAdminPassword(password string) Option {
	return func(m *Manager) {
		if password != "" {
			m.seedPass = password
		}
	}
}

// NewManager constructs a Manager for db opened with driverName.
func NewManager(db *sql.DB, driverName string, opts ...Option) (*Manager, error) {
	p, err := store.NewMigrator(db, driverName)
	if err != nil {
		return nil, err
	}
	m := &Manager{db: db, provider: p, seedPass: "admin123"}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Up applies all pending migrations and reports what ran.
func (m *Manager) Up(ctx context.Context) ([]string, error) {
	results, err := m.provider.Up(ctx)
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, describe(r))
	}
	if err != nil {
		return out, fmt.Errorf("migrate up: %w", err)
	}
	return out, nil
}

// Down rolls back the most recent migration.
func (m *Manager) Down(ctx context.Context) (string, error) {
	r, err := m.provider.Down(ctx)
	if err != nil {
		return "", fmt.Errorf("migrate down: %w", err)
	}
	return describe(r), nil
}

// Status lists every known migration with its state.
func (m *Manager) Status(ctx context.Context) ([]string, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		line := fmt.Sprintf("%05d %-28s %s", s.Source.Version, filepath.Base(s.Source.Path), s.State)
		if s.State == goose.StateApplied {
			line += " " + s.AppliedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, line)
	}
	return out, nil
}

// Seed creates the default administrator when it is missing. It reports
// whether an account was created.
func (m *Manager) Seed(ctx context.Context) (bool, error) {
	svc := auth.NewService(auth.NewSQLUsers(m.db), nil)
	created, err := svc.EnsureAdmin(ctx, m.seedPass)
	if err != nil {
		return false, fmt.Errorf("migrate seed: %w", err)
	}
	return created, nil
}

func describe(r *goose.MigrationResult) string {
	if r == nil || r.Source == nil {
		return ""
	}
	return fmt.Sprintf("%s %s (%s)", r.Direction, filepath.Base(r.Source.Path), r.Duration.Round(time.Millisecond))
}
