package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timeLayout is fixed width so text timestamps sort chronologically in sqlite.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Timestamp renders t for storage.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

var timeLayouts = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ScanTime converts a driver value holding a timestamp into UTC time.
func ScanTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case []byte:
		return parseTime(string(t))
	case string:
		return parseTime(t)
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("store: unsupported time value %T", v)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("store: unparsable time %q", s)
}

func scanText(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(t)
	case string:
		return t
	case time.Time:
		return Timestamp(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func scanDate(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return t.UTC().Format("2006-01-02")
	case []byte:
		return trimDate(string(t))
	case string:
		return trimDate(t)
	}
	return nil
}

func trimDate(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) > 10 {
		s = s[:10]
	}
	return s
}

func scanDecimal(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return t
	case float32:
		return float64(t)
	case int64:
		return float64(t)
	case []byte:
		return parseDecimal(string(t))
	case string:
		return parseDecimal(t)
	}
	return nil
}

func parseDecimal(s string) any {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return n
}

func scanInt(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int:
		return int64(t), nil
	case []byte:
		return strconv.ParseInt(string(t), 10, 64)
	case string:
		return strconv.ParseInt(t, 10, 64)
	}
	return 0, fmt.Errorf("store: unsupported integer value %T", v)
}
