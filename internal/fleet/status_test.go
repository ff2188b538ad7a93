package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCertStatusBoundaries(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 45, 0, 0, time.UTC)
	today := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	day := func(n int) *time.Time {
		d := today.AddDate(0, 0, n)
		return &d
	}

	cases := []struct {
		name   string
		expiry *time.Time
		want   Status
	}{
		{"no date", nil, StatusUnknown},
		{"yesterday", day(-1), StatusExpired},
		{"today", day(0), StatusExpiring},
		{"thirty days", day(30), StatusExpiring},
		{"thirty one days", day(31), StatusValid},
		{"next year", day(365), StatusValid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CertStatus(tc.expiry, now))
		})
	}
}

func TestCertStatusUsesUTCDay(t *testing.T) {
	// 23:30 in UTC-6 is already the next day in UTC.
	loc := time.FixedZone("CST", -6*3600)
	now := time.Date(2025, 6, 10, 23, 30, 0, 0, loc)
	expiry := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, StatusExpiring, CertStatus(&expiry, now))
	past := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, StatusExpired, CertStatus(&past, now))
}

func TestDecorateAircraft(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := Record{"id": int64(1), "airworthiness_expiry": "2024-12-31", "insurance_expiry": "2025-06-01"}
	out := Aircraft.Decorate(rec, now)
	st := out["status"].(map[string]Status)
	assert.Equal(t, StatusExpired, st["airworthiness"])
	assert.Equal(t, StatusValid, st["insurance"])
	assert.Equal(t, StatusUnknown, st["radio"])
	_, touched := rec["status"]
	assert.False(t, touched, "Decorate must not mutate its input")
}
