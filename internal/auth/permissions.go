package auth

import (
	"fmt"
	"sort"
)

const (
	PermViewAll = "view_all"

	PermViewAircraftModule  = "view_aircraft_module"
	PermCreateAircraft      = "create_aircraft"
	PermDeleteAircraft      = "delete_aircraft"
	PermManageAircraftBasic = "manage_aircraft_basic"
	PermManageDebt          = "manage_debt"
	PermManageInsurance     = "manage_insurance"
	PermManageAirworthiness = "manage_airworthiness"
	PermManageRadio         = "manage_radio"

	PermViewPilotsModule   = "view_pilots_module"
	PermCreatePilot        = "create_pilot"
	PermDeletePilot        = "delete_pilot"
	PermManagePilotBasic   = "manage_pilot_basic"
	PermManagePilotLicense = "manage_pilot_license"
	PermManagePilotMedical = "manage_pilot_medical"

	PermManageUsers = "manage_users"
)

// Permission is one catalog entry.
type Permission struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// PermissionGroup clusters permissions for display.
type PermissionGroup struct {
	Key         string       `json:"key"`
	Label       string       `json:"label"`
	Permissions []Permission `json:"permissions"`
}

// PermissionGroups is the full catalog in display order.
var PermissionGroups = []PermissionGroup{
	{Key: "aircraft", Label: "Aircraft", Permissions: []Permission{
		{Key: PermViewAircraftModule, Label: "View aircraft module"},
		{Key: PermCreateAircraft, Label: "Create aircraft"},
		{Key: PermDeleteAircraft, Label: "Delete aircraft"},
		{Key: PermManageAircraftBasic, Label: "Edit basic information"},
		{Key: PermManageDebt, Label: "Edit debt status"},
		{Key: PermManageInsurance, Label: "Edit insurance"},
		{Key: PermManageAirworthiness, Label: "Edit airworthiness certificate"},
		{Key: PermManageRadio, Label: "Edit radio station certificate"},
	}},
	{Key: "pilots", Label: "Pilots", Permissions: []Permission{
		{Key: PermViewPilotsModule, Label: "View pilots module"},
		{Key: PermCreatePilot, Label: "Create pilots"},
		{Key: PermDeletePilot, Label: "Delete pilots"},
		{Key: PermManagePilotBasic, Label: "Edit basic information"},
		{Key: PermManagePilotLicense, Label: "Edit license"},
		{Key: PermManagePilotMedical, Label: "Edit medical certificate"},
	}},
	{Key: "system", Label: "System", Permissions: []Permission{
		{Key: PermViewAll, Label: "View all information"},
		{Key: PermManageUsers, Label: "Manage users and permissions"},
	}},
}

var known = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, g := range PermissionGroups {
		for _, p := range g.Permissions {
			m[p.Key] = struct{}{}
		}
	}
	return m
}()

// IsValidPermission reports whether token is in the catalog.
func IsValidPermission(token string) bool {
	_, ok := known[token]
	return ok
}

// AllPermissions returns every token, sorted.
func AllPermissions() []string {
	out := make([]string, 0, len(known))
	for k := range known {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AdminPermissions is the full-access preset.
func AdminPermissions() []string { return AllPermissions() }

// ViewerPermissions is the read-only preset.
func ViewerPermissions() []string { return []string{PermViewAll} }

// ValidatePermissionSet checks that v is a list of known permission tokens and
// returns it as a deduplicated slice in input order. v may be a []string or
// the []any produced by encoding/json.
func ValidatePermissionSet(v any) ([]string, error) {
	var raw []any
	switch list := v.(type) {
	case []string:
		raw = make([]any, len(list))
		for i, s := range list {
			raw[i] = s
		}
	case []any:
		raw = list
	default:
		return nil, fmt.Errorf("%w: expected a list of strings", ErrInvalidPermissions)
	}
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %v is not a string", ErrInvalidPermissions, item)
		}
		if !IsValidPermission(s) {
			return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidPermissions, s)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// PermissionSet is an unordered set of tokens.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from tokens.
func NewPermissionSet(tokens ...string) PermissionSet {
	set := make(PermissionSet, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Has reports whether token is in the set.
func (s PermissionSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// HasAny reports whether at least one of tokens is in the set.
func (s PermissionSet) HasAny(tokens ...string) bool {
	for _, t := range tokens {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// Slice returns the tokens sorted.
func (s PermissionSet) Slice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
