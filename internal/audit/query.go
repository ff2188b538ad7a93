package audit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vpfs.org/internal/fleet"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Query filters the audit log. Zero values mean "no filter". Start and End
// are inclusive.
type Query struct {
	UserID   int64
	Action   Action
	Resource Resource
	Start    *time.Time
	End      *time.Time
	Limit    int
	Offset   int
}

// normalized applies the default limit and clamps the window.
func (q Query) normalized() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// QueryFromValues parses the audit-logs query string.
func QueryFromValues(v url.Values) (Query, error) {
	var q Query
	if raw := strings.TrimSpace(v.Get("userId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Query{}, fmt.Errorf("%w: userId must be a positive integer", ErrInvalidQuery)
		}
		q.UserID = id
	}
	if raw := strings.TrimSpace(v.Get("action")); raw != "" {
		q.Action = Action(strings.ToUpper(raw))
		if !q.Action.Valid() {
			return Query{}, fmt.Errorf("%w: unknown action %q", ErrInvalidQuery, raw)
		}
	}
	if raw := strings.TrimSpace(v.Get("resource")); raw != "" {
		q.Resource = Resource(strings.ToLower(raw))
		if !q.Resource.Valid() {
			return Query{}, fmt.Errorf("%w: unknown resource %q", ErrInvalidQuery, raw)
		}
	}
	var err error
	if q.Start, err = parseBound(v.Get("startDate"), "startDate"); err != nil {
		return Query{}, err
	}
	if q.End, err = parseBound(v.Get("endDate"), "endDate"); err != nil {
		return Query{}, err
	}
	if q.Limit, err = parseCount(v.Get("limit"), "limit"); err != nil {
		return Query{}, err
	}
	if q.Offset, err = parseCount(v.Get("offset"), "offset"); err != nil {
		return Query{}, err
	}
	return q.normalized(), nil
}

// Values encodes q as a query string.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.UserID > 0 {
		v.Set("userId", strconv.FormatInt(q.UserID, 10))
	}
	if q.Action != "" {
		v.Set("action", string(q.Action))
	}
	if q.Resource != "" {
		v.Set("resource", string(q.Resource))
	}
	if q.Start != nil {
		v.Set("startDate", q.Start.UTC().Format(time.RFC3339))
	}
	if q.End != nil {
		v.Set("endDate", q.End.UTC().Format(time.RFC3339))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

func parseBound(raw, name string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(fleet.DateLayout, raw); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("%w: %s must be RFC 3339 or YYYY-MM-DD", ErrInvalidQuery, name)
}

func parseCount(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidQuery, name)
	}
	return n, nil
}

// Reader is the read side of the audit log.
type Reader interface {
	List(ctx context.Context, q Query) ([]Entry, int, error)
	Stats(ctx context.Context) (Stats, error)
}

// Engine answers audit log listings.
type Engine struct {
	store Reader
}

func NewEngine(store Reader) *Engine {
	return &Engine{store: store}
}

// Search returns the page of entries matching q, newest first.
func (e *Engine) Search(ctx context.Context, q Query) (Page, error) {
	q = q.normalized()
	logs, total, err := e.store.List(ctx, q)
	if err != nil {
		return Page{}, err
	}
	if logs == nil {
		logs = []Entry{}
	}
	return Page{Logs: logs, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

// Stats aggregates the whole log.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	return e.store.Stats(ctx)
}
