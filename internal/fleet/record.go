package fleet

import (
	"strconv"
	"time"
)

// Record is one entity row keyed by column name. Values are nil, string,
// float64, int64 or time.Time depending on the column.
type Record map[string]any

// ID returns the primary key, or 0 when absent.
func (r Record) ID() int64 {
	switch v := r["id"].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// String returns the text value of field, or "" when it is unset.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Date returns the parsed value of a date column.
func (r Record) Date(field string) *time.Time {
	switch v := r[field].(type) {
	case string:
		t, err := ParseDate(v)
		if err != nil {
			return nil
		}
		return &t
	case time.Time:
		d := time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	return nil
}

// Name returns the display name used in audit entries.
func (s *Schema) Name(r Record) string {
	return r.String(s.NameField)
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
