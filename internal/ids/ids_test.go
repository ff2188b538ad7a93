package ids

import (
	"testing"
	"time"
)

func TestNewIsMonotonic(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a := NewAt(at)
	b := NewAt(at)
	if a >= b {
		t.Fatalf("expected %s < %s", a, b)
	}
	if !Valid(a) || !Valid(b) {
		t.Fatalf("generated ids should be valid: %s %s", a, b)
	}
}

func TestValid(t *testing.T) {
	for _, s := range []string{"", "abc", "not-a-ulid-not-a-ulid-not-a", "01ARZ3NDEKTSV4RRFFQ69G5FA!"} {
		if Valid(s) {
			t.Fatalf("%q should be invalid", s)
		}
	}
}
