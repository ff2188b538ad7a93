package audit

import (
	"context"
	"database/sql"
	"strings"

	"vpfs.org/internal/store"
)

var (
	_ Writer = (*SQLStore)(nil)
	_ Reader = (*SQLStore)(nil)
)

// SQLStore keeps entries in the audit_logs table.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Insert(ctx context.Context, e *Entry) error {
	details, err := MarshalDetails(e.Details)
	if err != nil {
		return err
	}
	var detailsArg any
	if details != nil {
		detailsArg = string(details)
	}
	return s.db.QueryRowContext(ctx,
		`insert into audit_logs (user_id, username, action, resource, resource_id, resource_name, details, ip_address, created_at)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?) returning id`,
		e.UserID, e.Username, string(e.Action), string(e.Resource),
		nullable(e.ResourceID), nullable(e.ResourceName), detailsArg, nullable(e.IPAddress), store.Timestamp(e.CreatedAt),
	).Scan(&e.ID)
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func where(q Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.UserID > 0 {
		conds = append(conds, "l.user_id = ?")
		args = append(args, q.UserID)
	}
	if q.Action != "" {
		conds = append(conds, "l.action = ?")
		args = append(args, string(q.Action))
	}
	if q.Resource != "" {
		conds = append(conds, "l.resource = ?")
		args = append(args, string(q.Resource))
	}
	if q.Start != nil {
		conds = append(conds, "l.created_at >= ?")
		args = append(args, store.Timestamp(*q.Start))
	}
	if q.End != nil {
		conds = append(conds, "l.created_at <= ?")
		args = append(args, store.Timestamp(*q.End))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " where " + strings.Join(conds, " and "), args
}

// List returns the entries matching q, newest first, and the total count
// before paging.
func (s *SQLStore) List(ctx context.Context, q Query) ([]Entry, int, error) {
	q = q.normalized()
	clause, args := where(q)

	var total int
	if err := s.db.QueryRowContext(ctx, "select count(*) from audit_logs l"+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`select l.id, l.user_id, l.username, l.action, l.resource, l.resource_id, l.resource_name,
		l.details, l.ip_address, l.created_at, u.id, u.username, u.name
		from audit_logs l left join users u on u.id = l.user_id`+clause+
			` order by l.created_at desc, l.id desc limit ? offset ?`,
		append(args, q.Limit, q.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, e)
	}
	return logs, total, rows.Err()
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e            Entry
		action       string
		resource     string
		resourceID   sql.NullInt64
		resourceName sql.NullString
		details      sql.NullString
		ip           sql.NullString
		created      any
		uid          sql.NullInt64
		uname        sql.NullString
		name         sql.NullString
	)
	if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &action, &resource, &resourceID, &resourceName,
		&details, &ip, &created, &uid, &uname, &name); err != nil {
		return Entry{}, err
	}
	e.Action = Action(action)
	e.Resource = Resource(resource)
	if resourceID.Valid {
		e.ResourceID = int64Ptr(resourceID.Int64)
	}
	if resourceName.Valid {
		e.ResourceName = &resourceName.String
	}
	if ip.Valid {
		e.IPAddress = &ip.String
	}
	if details.Valid {
		d, err := DecodeDetails([]byte(details.String))
		if err != nil {
			return Entry{}, err
		}
		e.Details = d
	}
	var err error
	if e.CreatedAt, err = store.ScanTime(created); err != nil {
		return Entry{}, err
	}
	if uid.Valid {
		e.User = &EntryUser{ID: uid.Int64, Username: uname.String, Name: name.String}
	}
	return e, nil
}

// Stats counts entries overall, per action and per resource.
func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, "select count(*) from audit_logs").Scan(&st.Total); err != nil {
		return Stats{}, err
	}
	st.ByAction = []ActionCount{}
	if err := s.group(ctx, "action", func(key string, n int) {
		st.ByAction = append(st.ByAction, ActionCount{Action: Action(key), Count: n})
	}); err != nil {
		return Stats{}, err
	}
	st.ByResource = []ResourceCount{}
	if err := s.group(ctx, "resource", func(key string, n int) {
		st.ByResource = append(st.ByResource, ResourceCount{Resource: Resource(key), Count: n})
	}); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// group runs a count grouped by column, which must be a literal.
func (s *SQLStore) group(ctx context.Context, column string, fn func(string, int)) error {
	rows, err := s.db.QueryContext(ctx,
		"select "+column+", count(*) from audit_logs group by "+column+" order by "+column)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		fn(key, n)
	}
	return rows.Err()
}
