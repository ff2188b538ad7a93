package audit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.English)

// FieldLabel turns a column name into a display label.
func FieldLabel(field string) string {
	return titler.String(strings.ReplaceAll(field, "_", " "))
}

// RenderDetails describes the details of e as one line of text.
func RenderDetails(e Entry) string {
	switch d := e.Details.(type) {
	case SearchResult:
		label := "Pilot search"
		if e.Resource == ResourceAircraft {
			label = "Registration search"
		}
		outcome := "found"
		if d.NotFound {
			outcome = "not found"
		}
		return fmt.Sprintf("%s: %q (%s)", label, d.SearchQuery, outcome)
	case ChangeSet:
		if len(d.Changes) == 0 {
			return "no changes"
		}
		fields := make([]string, 0, len(d.Changes))
		for f := range d.Changes {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			c := d.Changes[f]
			if f == "permissions" {
				parts = append(parts, renderPermissionChange(c))
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s → %s", FieldLabel(f), renderValue(c.Before), renderValue(c.After)))
		}
		return strings.Join(parts, "; ")
	case CreatedData:
		if e.Resource == ResourceUser {
			if perms := permissionList(d.Data["permissions"]); len(perms) > 0 {
				return fmt.Sprintf("user created; %d permissions granted: %s", len(perms), strings.Join(perms, ", "))
			}
		}
		return "record created"
	case DeletedSnapshot:
		return "record deleted"
	}
	return "-"
}

func renderPermissionChange(c Change) string {
	before, after := permissionList(c.Before), permissionList(c.After)
	out := fmt.Sprintf("%s: %d → %d", FieldLabel("permissions"), len(before), len(after))
	if added := missing(after, before); len(added) > 0 {
		out += " (+ added: " + strings.Join(added, ", ") + ")"
	}
	if removed := missing(before, after); len(removed) > 0 {
		out += " (- removed: " + strings.Join(removed, ", ") + ")"
	}
	return out
}

// permissionList accepts a JSON list or a comma separated string.
func permissionList(v any) []string {
	var out []string
	switch p := v.(type) {
	case []any:
		for _, item := range p {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, p...)
	case string:
		for _, s := range strings.Split(p, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// missing returns the items of a that are not in b.
func missing(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, s := range b {
		in[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := in[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}
