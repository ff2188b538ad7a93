package store

import (
	"testing"
	"time"
)

func TestTimestampRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 9, 7, 5, 3, 120000000, time.FixedZone("X", 3600))
	s := Timestamp(at)
	if s != "2025-03-09T06:05:03.120000Z" {
		t.Fatalf("unexpected layout: %s", s)
	}
	got, err := ScanTime(s)
	if err != nil {
		t.Fatalf("ScanTime: %v", err)
	}
	if !got.Equal(at) {
		t.Fatalf("round trip mismatch: %v != %v", got, at)
	}
	if earlier := Timestamp(at.Add(-500 * time.Millisecond)); earlier >= s {
		t.Fatalf("timestamps must sort as text: %s >= %s", earlier, s)
	}
}

func TestScanHelpers(t *testing.T) {
	if v := scanDate(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)); v != "2025-01-02" {
		t.Fatalf("scanDate(time)=%v", v)
	}
	if v := scanDate("2025-01-02T00:00:00Z"); v != "2025-01-02" {
		t.Fatalf("scanDate(string)=%v", v)
	}
	if v := scanDecimal("1500.50"); v != 1500.5 {
		t.Fatalf("scanDecimal=%v", v)
	}
	if v := scanText([]byte("XA-ABC")); v != "XA-ABC" {
		t.Fatalf("scanText=%v", v)
	}
	if v := scanText(nil); v != nil {
		t.Fatalf("scanText(nil)=%v", v)
	}
	if _, err := ScanTime(42); err == nil {
		t.Fatal("expected error for integer time")
	}
}
