package audit

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"vpfs.org/internal/fleet"
)

// normalize folds the empty spellings of a value into nil.
func normalize(v any) any {
	if s, ok := v.(string); ok && (s == "" || s == fleet.InvalidDate) {
		return nil
	}
	return v
}

// setFields hold unordered lists; reordering one is not a change.
var setFields = map[string]bool{"permissions": true}

// normalizeField is normalize plus order folding for set-valued keys.
func normalizeField(key string, v any) any {
	v = normalize(v)
	if !setFields[key] || v == nil {
		return v
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return v
	}
	out := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, fmt.Sprint(rv.Index(i).Interface()))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Diff compares the submitted body with the pre-update snapshot. Only keys
// present on the snapshot are considered, and a change is recorded only
// when the normalized values differ. The recorded values are raw.
func Diff(snapshot, body map[string]any) ChangeSet {
	changes := make(map[string]Change)
	for key, after := range body {
		before, ok := snapshot[key]
		if !ok {
			continue
		}
		if reflect.DeepEqual(normalizeField(key, before), normalizeField(key, after)) {
			continue
		}
		changes[key] = Change{Before: before, After: after}
	}
	return ChangeSet{Changes: changes}
}

// Snapshot converts v to its JSON object form, so values compare the way
// they appear on the wire.
func Snapshot(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// redact drops secrets from a submitted payload before it is persisted.
func redact(body map[string]any) map[string]any {
	if body == nil {
		return nil
	}
	out := make(map[string]any, len(body))
	for k, v := range body {
		if strings.EqualFold(k, "password") {
			continue
		}
		out[k] = v
	}
	return out
}
