package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vpfs.org/internal/store"
)

var _ UserStore = (*SQLUsers)(nil)

const userColumns = "id, username, password, name, permissions, created_at, updated_at"

// SQLUsers implements UserStore on the users table.
type SQLUsers struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLUsers(db *sql.DB) *SQLUsers {
	return &SQLUsers{db: db, now: time.Now}
}

// WithClock overrides the timestamp source.
func (s *SQLUsers) WithClock(now func() time.Time) *SQLUsers {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *SQLUsers) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, "select "+userColumns+" from users order by created_at desc, id desc")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (s *SQLUsers) Find(ctx context.Context, id int64) (*User, error) {
	return s.one(ctx, "select "+userColumns+" from users where id = ?", id)
}

func (s *SQLUsers) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.one(ctx, "select "+userColumns+" from users where username = ?", username)
}

func (s *SQLUsers) Create(ctx context.Context, u *User) error {
	perms, err := encodePermissions(u.Permissions)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	var id int64
	err = s.db.QueryRowContext(ctx,
		`insert into users (username, password, name, permissions, created_at, updated_at)
		values (?, ?, ?, ?, ?, ?) returning id`,
		u.Username, u.PasswordHash, u.Name, perms, store.Timestamp(now), store.Timestamp(now),
	).Scan(&id)
	if err != nil {
		return classifyUserErr(err)
	}
	u.ID = id
	u.CreatedAt = now.Truncate(time.Microsecond)
	u.UpdatedAt = u.CreatedAt
	return nil
}

func (s *SQLUsers) Update(ctx context.Context, u *User) error {
	perms, err := encodePermissions(u.Permissions)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`update users set username = ?, password = ?, name = ?, permissions = ?, updated_at = ? where id = ?`,
		u.Username, u.PasswordHash, u.Name, perms, store.Timestamp(now), u.ID,
	)
	if err != nil {
		return classifyUserErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	u.UpdatedAt = now.Truncate(time.Microsecond)
	return nil
}

// Delete checks the last-manager invariant and removes the row in one
// transaction.
func (s *SQLUsers) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "select id, permissions from users")
	if err != nil {
		return err
	}
	var (
		found    bool
		targetMg bool
		managers int
	)
	for rows.Next() {
		var (
			uid int64
			raw string
		)
		if err := rows.Scan(&uid, &raw); err != nil {
			rows.Close()
			return err
		}
		manager := NewPermissionSet(decodePermissions(raw)...).Has(PermManageUsers)
		if manager {
			managers++
		}
		if uid == id {
			found = true
			targetMg = manager
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if !found {
		return store.ErrNotFound
	}
	if targetMg && managers <= 1 {
		return ErrLastManager
	}
	if _, err := tx.ExecContext(ctx, "delete from users where id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLUsers) one(ctx context.Context, query string, args ...any) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return u, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u                User
		perms            string
		created, updated any
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &perms, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if u.CreatedAt, err = store.ScanTime(created); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = store.ScanTime(updated); err != nil {
		return nil, err
	}
	u.Permissions = decodePermissions(perms)
	return &u, nil
}

func encodePermissions(perms []string) (string, error) {
	if perms == nil {
		perms = []string{}
	}
	b, err := json.Marshal(perms)
	if err != nil {
		return "", fmt.Errorf("encode permissions: %w", err)
	}
	return string(b), nil
}

// decodePermissions falls back to the viewer preset when the column does
// not hold a JSON list of strings.
func decodePermissions(raw string) []string {
	var perms []string
	if err := json.Unmarshal([]byte(raw), &perms); err != nil || perms == nil {
		return ViewerPermissions()
	}
	return perms
}

func classifyUserErr(err error) error {
	err = store.Classify(err)
	if errors.Is(err, store.ErrConflict) {
		return ErrUsernameTaken
	}
	return err
}
