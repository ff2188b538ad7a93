package store

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

var sqliteUniqueMessage = regexp.MustCompile(`UNIQUE constraint failed: (\w+)\.(\w+)`)

// Classify turns a unique-constraint violation from either driver into a
// *ConflictError and returns any other error unchanged.
// Postgres constraints follow the <table>_<column>_key naming.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		table := pgErr.TableName
		field := strings.TrimSuffix(pgErr.ConstraintName, "_key")
		if table != "" {
			field = strings.TrimPrefix(field, table+"_")
		}
		return &ConflictError{Table: table, Field: field, Err: err}
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) && liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		if m := sqliteUniqueMessage.FindStringSubmatch(liteErr.Error()); m != nil {
			return &ConflictError{Table: m[1], Field: m[2], Err: err}
		}
		if liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return &ConflictError{Err: err}
		}
	}
	return err
}
