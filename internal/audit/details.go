package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Details is the structured payload of an entry. It is implemented by
// SearchResult, ChangeSet, CreatedData and DeletedSnapshot only.
type Details interface {
	detailsKind() string
}

// SearchResult records a lookup by identifier.
type SearchResult struct {
	SearchQuery string `json:"searchQuery"`
	Found       bool   `json:"found,omitempty"`
	NotFound    bool   `json:"notFound,omitempty"`
}

// Change is the raw before and after value of one field.
type Change struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// ChangeSet records the fields an update actually changed.
type ChangeSet struct {
	Changes map[string]Change `json:"changes"`
}

// CreatedData records the submitted payload of a create.
type CreatedData struct {
	Data map[string]any `json:"data"`
}

// DeletedSnapshot records the last state of a deleted record.
type DeletedSnapshot struct {
	DeletedData map[string]any `json:"deletedData"`
}

func (SearchResult) detailsKind() string    { return "search" }
func (ChangeSet) detailsKind() string       { return "changes" }
func (CreatedData) detailsKind() string     { return "data" }
func (DeletedSnapshot) detailsKind() string { return "deletedData" }

// MarshalDetails encodes d for storage. A nil d encodes as nil.
func MarshalDetails(d Details) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// DecodeDetails parses stored details, choosing the variant by its keys.
func DecodeDetails(raw []byte) (Details, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("audit details: %w", err)
	}
	var (
		d   Details
		err error
	)
	switch {
	case has(keys, "searchQuery"):
		var v SearchResult
		err = json.Unmarshal(raw, &v)
		d = v
	case has(keys, "changes"):
		var v ChangeSet
		err = json.Unmarshal(raw, &v)
		d = v
	case has(keys, "data"):
		var v CreatedData
		err = json.Unmarshal(raw, &v)
		d = v
	case has(keys, "deletedData"):
		var v DeletedSnapshot
		err = json.Unmarshal(raw, &v)
		d = v
	default:
		return nil, fmt.Errorf("audit details: unrecognized shape %s", raw)
	}
	if err != nil {
		return nil, fmt.Errorf("audit details: %w", err)
	}
	return d, nil
}

func has(m map[string]json.RawMessage, key string) bool {
	_, ok := m[key]
	return ok
}
