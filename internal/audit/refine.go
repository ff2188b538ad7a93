package audit

import (
	"strings"
	"time"

	"vpfs.org/internal/fleet"
)

// RefineLimit is the widened page size fetched while a refinement is active.
const RefineLimit = 500

// RefineOptions are the filters applied to an already fetched page.
// DateStart and DateEnd are inclusive YYYY-MM-DD bounds compared against the
// entry's calendar day in Location.
type RefineOptions struct {
	Search    string
	DateStart string
	DateEnd   string
	Location  *time.Location
}

// Active reports whether any refinement is set.
func (o RefineOptions) Active() bool {
	return strings.TrimSpace(o.Search) != "" || o.DateStart != "" || o.DateEnd != ""
}

// PlanFetch returns the server query for the given 1-based page. While a
// refinement is active the first page is fetched with a widened limit and
// paging is disabled, so matches past that window are not seen.
func PlanFetch(q Query, page int, o RefineOptions) Query {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if o.Active() {
		q.Limit = RefineLimit
		q.Offset = 0
		return q
	}
	if page < 1 {
		page = 1
	}
	q.Offset = (page - 1) * q.Limit
	return q
}

// HasMore infers whether another page may exist. It is a guess: a full page
// may also be the last one.
func HasMore(rows, limit int) bool {
	return limit > 0 && rows >= limit
}

// Refine keeps the entries matching o.
func Refine(entries []Entry, o RefineOptions) []Entry {
	if !o.Active() {
		return entries
	}
	loc := o.Location
	if loc == nil {
		loc = time.Local
	}
	term := strings.ToLower(strings.TrimSpace(o.Search))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		day := e.CreatedAt.In(loc).Format(fleet.DateLayout)
		if o.DateStart != "" && day < o.DateStart {
			continue
		}
		if o.DateEnd != "" && day > o.DateEnd {
			continue
		}
		if term != "" && !strings.Contains(searchText(e), term) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func searchText(e Entry) string {
	ip := ""
	if e.IPAddress != nil {
		ip = *e.IPAddress
	}
	return strings.ToLower(strings.Join([]string{
		e.Username, ip, string(e.Resource), string(e.Action), RenderDetails(e),
	}, " "))
}
