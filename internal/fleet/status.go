package fleet

import (
	"math"
	"time"
)

// Status classifies a certificate by its expiry date.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusExpired  Status = "expired"
	StatusExpiring Status = "expiring"
	StatusValid    Status = "valid"
)

// ExpiringWindowDays is how close to expiry a certificate starts warning.
const ExpiringWindowDays = 30

// CertStatus classifies expiry relative to the UTC calendar day of now.
func CertStatus(expiry *time.Time, now time.Time) Status {
	if expiry == nil || expiry.IsZero() {
		return StatusUnknown
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(math.Ceil(expiry.Sub(today).Hours() / 24))
	switch {
	case days < 0:
		return StatusExpired
	case days <= ExpiringWindowDays:
		return StatusExpiring
	default:
		return StatusValid
	}
}

// Statuses computes the status of every certificate category of rec.
func (s *Schema) Statuses(rec Record, now time.Time) map[string]Status {
	out := make(map[string]Status, len(s.Expiries))
	for _, e := range s.Expiries {
		out[e.Category] = CertStatus(rec.Date(e.Field), now)
	}
	return out
}

// Decorate returns a copy of rec with a computed "status" entry for display.
func (s *Schema) Decorate(rec Record, now time.Time) Record {
	if len(s.Expiries) == 0 {
		return rec
	}
	out := rec.Clone()
	out["status"] = s.Statuses(rec, now)
	return out
}
