package audit

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidQuery is returned for malformed audit log filters.
var ErrInvalidQuery = errors.New("invalid audit query")

// Action is the kind of event an entry records.
type Action string

const (
	ActionView   Action = "VIEW"
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionLogin  Action = "LOGIN"
	ActionLogout Action = "LOGOUT"
)

// Actions lists every valid action.
var Actions = []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionLogin, ActionLogout}

func (a Action) Valid() bool {
	for _, v := range Actions {
		if v == a {
			return true
		}
	}
	return false
}

// Resource is the entity family an entry refers to.
type Resource string

const (
	ResourceAircraft Resource = "aircraft"
	ResourcePilot    Resource = "pilot"
	ResourceUser     Resource = "user"
	ResourceAuth     Resource = "auth"
)

// Resources lists every valid resource.
var Resources = []Resource{ResourceAircraft, ResourcePilot, ResourceUser, ResourceAuth}

func (r Resource) Valid() bool {
	for _, v := range Resources {
		if v == r {
			return true
		}
	}
	return false
}

// EntryUser is the current account behind an entry, when it still exists.
type EntryUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Entry is one immutable audit record.
type Entry struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"userId"`
	Username     string     `json:"username"`
	Action       Action     `json:"action"`
	Resource     Resource   `json:"resource"`
	ResourceID   *int64     `json:"resourceId"`
	ResourceName *string    `json:"resourceName"`
	Details      Details    `json:"details"`
	IPAddress    *string    `json:"ipAddress"`
	CreatedAt    time.Time  `json:"created_at"`
	User         *EntryUser `json:"user,omitempty"`
}

// UnmarshalJSON decodes the details union through DecodeDetails.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	var aux struct {
		plain
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	details, err := DecodeDetails(aux.Details)
	if err != nil {
		return err
	}
	*e = Entry(aux.plain)
	e.Details = details
	return nil
}

// Page is one window of a filtered listing.
type Page struct {
	Logs   []Entry `json:"logs"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

type ActionCount struct {
	Action Action `json:"action"`
	Count  int    `json:"count"`
}

type ResourceCount struct {
	Resource Resource `json:"resource"`
	Count    int      `json:"count"`
}

// Stats aggregates the whole log.
type Stats struct {
	Total      int             `json:"total"`
	ByAction   []ActionCount   `json:"byAction"`
	ByResource []ResourceCount `json:"byResource"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func int64Ptr(v int64) *int64 { return &v }
