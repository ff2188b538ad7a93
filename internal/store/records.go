package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vpfs.org/internal/fleet"
)

// Records persists the rows of one fleet entity table described by a schema.
// Column names only ever come from the schema, never from request payloads.
type Records struct {
	db     *sql.DB
	schema *fleet.Schema
	now    func() time.Time
	cols   string
}

// NewRecords returns a record store for schema.
func NewRecords(db *sql.DB, schema *fleet.Schema) *Records {
	return &Records{
		db:     db,
		schema: schema,
		now:    time.Now,
		cols:   "id, " + strings.Join(schema.Columns(), ", ") + ", created_at, updated_at",
	}
}

// WithClock overrides the timestamp source for created_at/updated_at.
func (r *Records) WithClock(now func() time.Time) *Records {
	if now != nil {
		r.now = now
	}
	return r
}

// Schema returns the schema the store was built for.
func (r *Records) Schema() *fleet.Schema { return r.schema }

// List returns every row, newest first.
func (r *Records) List(ctx context.Context) ([]fleet.Record, error) {
	rows, err := r.db.QueryContext(ctx, "select "+r.cols+" from "+r.schema.Table+" order by created_at desc, id desc")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []fleet.Record{}
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Find loads the row with id.
func (r *Records) Find(ctx context.Context, id int64) (fleet.Record, error) {
	return r.one(ctx, r.db, "select "+r.cols+" from "+r.schema.Table+" where id = ?", id)
}

// FindBy loads the first row whose field equals value.
func (r *Records) FindBy(ctx context.Context, field string, value any) (fleet.Record, error) {
	if _, ok := r.schema.Field(field); !ok {
		return nil, fmt.Errorf("store: unknown column %s.%s", r.schema.Table, field)
	}
	return r.one(ctx, r.db, "select "+r.cols+" from "+r.schema.Table+" where "+field+" = ? order by id limit 1", value)
}

// Search returns the first row where any like column contains term
// (case-insensitive) or any exact column equals term.
func (r *Records) Search(ctx context.Context, term string, like, exact []string) (fleet.Record, error) {
	var (
		conds []string
		args  []any
	)
	for _, c := range like {
		if _, ok := r.schema.Field(c); !ok {
			return nil, fmt.Errorf("store: unknown column %s.%s", r.schema.Table, c)
		}
		conds = append(conds, "lower("+c+") like ?")
		args = append(args, "%"+strings.ToLower(term)+"%")
	}
	for _, c := range exact {
		if _, ok := r.schema.Field(c); !ok {
			return nil, fmt.Errorf("store: unknown column %s.%s", r.schema.Table, c)
		}
		conds = append(conds, c+" = ?")
		args = append(args, term)
	}
	if len(conds) == 0 {
		return nil, ErrNotFound
	}
	q := "select " + r.cols + " from " + r.schema.Table + " where " + strings.Join(conds, " or ") + " order by id limit 1"
	return r.one(ctx, r.db, q, args...)
}

// Create inserts rec and returns the stored row.
func (r *Records) Create(ctx context.Context, rec fleet.Record) (fleet.Record, error) {
	cols, args := r.assignments(rec)
	ts := Timestamp(r.now())
	cols = append(cols, "created_at", "updated_at")
	args = append(args, ts, ts)
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	q := "insert into " + r.schema.Table + " (" + strings.Join(cols, ", ") + ") values (" + marks + ") returning id"

	var id int64
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return nil, Classify(err)
	}
	return r.Find(ctx, id)
}

// Update writes changes to the row with id and returns the stored row.
func (r *Records) Update(ctx context.Context, id int64, changes fleet.Record) (fleet.Record, error) {
	cols, args := r.assignments(changes)
	sets := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		sets = append(sets, c+" = ?")
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, Timestamp(r.now()), id)
	q := "update " + r.schema.Table + " set " + strings.Join(sets, ", ") + " where id = ?"

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, Classify(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return r.Find(ctx, id)
}

// Delete removes the row with id.
func (r *Records) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "delete from "+r.schema.Table+" where id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// assignments returns the schema columns present in rec in schema order.
func (r *Records) assignments(rec fleet.Record) ([]string, []any) {
	var (
		cols []string
		args []any
	)
	for _, f := range r.schema.Fields {
		v, ok := rec[f.Name]
		if !ok {
			continue
		}
		cols = append(cols, f.Name)
		args = append(args, v)
	}
	return cols, args
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Records) one(ctx context.Context, q queryer, query string, args ...any) (fleet.Record, error) {
	rec, err := r.scan(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Records) scan(s scanner) (fleet.Record, error) {
	n := len(r.schema.Fields) + 3
	raw := make([]any, n)
	dest := make([]any, n)
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	id, err := scanInt(raw[0])
	if err != nil {
		return nil, err
	}
	rec := fleet.Record{"id": id}
	for i, f := range r.schema.Fields {
		v := raw[i+1]
		switch f.Kind {
		case fleet.Date:
			rec[f.Name] = scanDate(v)
		case fleet.Decimal:
			rec[f.Name] = scanDecimal(v)
		default:
			rec[f.Name] = scanText(v)
		}
	}
	created, err := ScanTime(raw[n-2])
	if err != nil {
		return nil, err
	}
	updated, err := ScanTime(raw[n-1])
	if err != nil {
		return nil, err
	}
	rec["created_at"] = created
	rec["updated_at"] = updated
	return rec, nil
}
