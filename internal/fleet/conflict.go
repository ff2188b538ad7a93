package fleet

import "fmt"

// ConflictMessage describes a uniqueness clash on field for the client.
// owner is the record already holding value and may be nil when it could not be loaded.
func (s *Schema) ConflictMessage(field, value string, owner Record) string {
	f, _ := s.Field(field)
	label := f.Label
	if label == "" {
		label = field
	}
	if field == s.NameField {
		return fmt.Sprintf("%s %q already exists", label, value)
	}
	if owner != nil && s.NameField != "" {
		return fmt.Sprintf("%s %q is already assigned to another %s (%s)", label, value, s.Resource, s.Name(owner))
	}
	return fmt.Sprintf("%s %q is already assigned to another %s", label, value, s.Resource)
}
