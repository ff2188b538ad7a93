// Package guard decides which field groups of a mutation payload a caller may write.
package guard

import (
	"sort"

	"vpfs.org/internal/auth"
)

// Group is a cluster of entity fields sharing one gating permission.
type Group struct {
	Name       string
	Permission string
	Fields     []string
}

// Table is the declarative field-group catalog of one entity.
type Table struct {
	Resource string
	Groups   []Group

	byField map[string]int
}

func newTable(resource string, groups ...Group) *Table {
	t := &Table{Resource: resource, Groups: groups, byField: make(map[string]int)}
	for i, g := range groups {
		for _, f := range g.Fields {
			t.byField[f] = i
		}
	}
	return t
}

// Decision is the outcome of Check. Denied is ordered as the table.
type Decision struct {
	Allowed bool
	Denied  []Group
}

// RequiredPermissions lists the permissions the caller was missing.
func (d Decision) RequiredPermissions() []string {
	out := make([]string, 0, len(d.Denied))
	for _, g := range d.Denied {
		out = append(out, g.Permission)
	}
	return out
}

// GroupOf returns the group gating field; ok is false for ungated fields.
func (t *Table) GroupOf(field string) (Group, bool) {
	i, ok := t.byField[field]
	if !ok {
		return Group{}, false
	}
	return t.Groups[i], true
}

// Writers lists every permission that grants write access to some group.
func (t *Table) Writers() []string {
	out := make([]string, 0, len(t.Groups))
	for _, g := range t.Groups {
		out = append(out, g.Permission)
	}
	return out
}

// Check decides whether granted may write every gated field in fields.
// A single denied group rejects the whole payload. Fields outside the table pass through.
func (t *Table) Check(granted auth.PermissionSet, fields []string) Decision {
	touched := make([]bool, len(t.Groups))
	for _, f := range fields {
		if i, ok := t.byField[f]; ok {
			touched[i] = true
		}
	}
	var denied []Group
	for i, g := range t.Groups {
		if touched[i] && !granted.Has(g.Permission) {
			denied = append(denied, g)
		}
	}
	return Decision{Allowed: len(denied) == 0, Denied: denied}
}

// CheckBody is Check over the keys of a decoded JSON object.
func (t *Table) CheckBody(granted auth.PermissionSet, body map[string]any) Decision {
	fields := make([]string, 0, len(body))
	for k := range body {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return t.Check(granted, fields)
}

// Group returns the named group.
func (t *Table) Group(name string) (Group, bool) {
	for _, g := range t.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}
