package fleet

import (
	"fmt"
	"math"
	"net/mail"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind is the storage type of a field.
type Kind uint8

const (
	Text Kind = iota
	Date
	Decimal
)

// DateLayout is the wire and storage format of date-only fields.
const DateLayout = "2006-01-02"

// InvalidDate is the marker some clients send for an unparsable date input.
const InvalidDate = "Invalid date"

// Field describes one writable column of an entity.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Unique   bool
	Values   []string // allowed values; empty means free text
	Default  any
	Email    bool
	Label    string
}

// Expiry links a certificate category to the date column that drives its status.
type Expiry struct {
	Category string
	Field    string
}

// Mode selects create or partial-update validation rules.
type Mode uint8

const (
	Create Mode = iota
	Update
)

// Schema is the column catalog of one entity table.
type Schema struct {
	Resource  string
	Table     string
	NameField string
	Fields    []Field
	Expiries  []Expiry

	// Finish runs after field conversion for cross-field rules. current is
	// the stored row on an update that has one, nil otherwise.
	Finish func(rec, current Record, mode Mode) error

	index map[string]int
}

func (s *Schema) init() *Schema {
	s.index = make(map[string]int, len(s.Fields))
	for i, f := range s.Fields {
		s.index[f.Name] = i
	}
	return s
}

// Field returns the definition of name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Columns lists the writable column names in declaration order.
func (s *Schema) Columns() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// UniqueFields lists the columns carrying a unique constraint.
func (s *Schema) UniqueFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Unique {
			out = append(out, f.Name)
		}
	}
	return out
}

// Prepare converts a decoded JSON body into the record to persist.
// Unknown keys and server-managed columns are dropped. Empty strings and the
// invalid-date marker become nil so optional unique identifiers stay NULL.
func (s *Schema) Prepare(body map[string]any, mode Mode) (Record, error) {
	return s.prepare(body, mode, nil)
}

// PrepareUpdate is Prepare for a partial update of current. Cross-field
// rules see the stored values of the columns body leaves out.
func (s *Schema) PrepareUpdate(body map[string]any, current Record) (Record, error) {
	return s.prepare(body, Update, current)
}

func (s *Schema) prepare(body map[string]any, mode Mode, current Record) (Record, error) {
	rec := make(Record, len(body))
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f, ok := s.Field(k)
		if !ok {
			continue
		}
		v, err := convert(f, body[k])
		if err != nil {
			return nil, err
		}
		if v == nil && f.Required {
			return nil, fmt.Errorf("%w: %s is required", ErrValidation, f.Name)
		}
		rec[k] = v
	}
	if mode == Create {
		for _, f := range s.Fields {
			if _, ok := rec[f.Name]; ok {
				continue
			}
			if f.Default != nil {
				rec[f.Name] = f.Default
				continue
			}
			if f.Required {
				return nil, fmt.Errorf("%w: %s is required", ErrValidation, f.Name)
			}
		}
	}
	if s.Finish != nil {
		if err := s.Finish(rec, current, mode); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func convert(f Field, raw any) (any, error) {
	if isEmpty(raw) {
		return nil, nil
	}
	switch f.Kind {
	case Date:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a date", ErrValidation, f.Name)
		}
		d, err := ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a date (YYYY-MM-DD)", ErrValidation, f.Name)
		}
		return d.Format(DateLayout), nil
	case Decimal:
		var n float64
		switch v := raw.(type) {
		case float64:
			n = v
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be a number", ErrValidation, f.Name)
			}
			n = parsed
		default:
			return nil, fmt.Errorf("%w: %s must be a number", ErrValidation, f.Name)
		}
		if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("%w: %s must be a non-negative number", ErrValidation, f.Name)
		}
		return n, nil
	default:
		var s string
		switch v := raw.(type) {
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(v)
		default:
			return nil, fmt.Errorf("%w: %s must be text", ErrValidation, f.Name)
		}
		if len(f.Values) > 0 && !contains(f.Values, s) {
			return nil, fmt.Errorf("%w: %s must be one of %s", ErrValidation, f.Name, strings.Join(f.Values, ", "))
		}
		if f.Email {
			if _, err := mail.ParseAddress(s); err != nil {
				return nil, fmt.Errorf("%w: %s must be a valid email address", ErrValidation, f.Name)
			}
		}
		return s, nil
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == "" || t == InvalidDate
	}
	return false
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns UTC midnight of that day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
