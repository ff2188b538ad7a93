package fleet

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareAircraftCreate(t *testing.T) {
	rec, err := Aircraft.Prepare(map[string]any{
		"registration":       "XA-ABC",
		"manufacturer":       "Cessna",
		"model":              "172",
		"serial_number":      17280001.0,
		"airworthiness_cert": "",
		"insurance_expiry":   "2026-02-01T00:00:00Z",
		"acoustic_expiry":    InvalidDate,
		"unknown_field":      "ignored",
		"id":                 99.0,
	}, Create)
	require.NoError(t, err)

	want := Record{
		"registration":       "XA-ABC",
		"manufacturer":       "Cessna",
		"model":              "172",
		"serial_number":      "17280001",
		"airworthiness_cert": nil,
		"insurance_expiry":   "2026-02-01",
		"acoustic_expiry":    nil,
		"debt_status":        DebtPaid,
		"debt_details":       nil,
		"debt_amount":        nil,
		"debt_currency":      nil,
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Fatalf("prepared record mismatch (-want +got):\n%s", diff)
	}
}

func TestPrepareRejects(t *testing.T) {
	cases := []struct {
		name string
		body map[string]any
		mode Mode
		msg  string
	}{
		{"missing registration", map[string]any{"manufacturer": "Piper", "model": "PA-28"}, Create, "registration is required"},
		{"blank required on update", map[string]any{"model": "  "}, Update, "model is required"},
		{"bad enum", map[string]any{"debt_status": "overdue"}, Update, "debt_status must be one of"},
		{"bad date", map[string]any{"radio_station_expiry": "31/12/2025"}, Update, "radio_station_expiry must be a date"},
		{"negative amount", map[string]any{"debt_amount": -5.0}, Update, "non-negative"},
		{"amount required", map[string]any{"debt_status": DebtSpecificAmount}, Update, "debt_amount is required"},
		{"currency", map[string]any{"debt_status": DebtSpecificAmount, "debt_amount": "10", "debt_currency": "usd"}, Update, "three letter"},
		{"object value", map[string]any{"holders": map[string]any{"a": 1}}, Update, "holders must be text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Aircraft.Prepare(tc.body, tc.mode)
			require.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestPrepareDebtDependents(t *testing.T) {
	rec, err := Aircraft.Prepare(map[string]any{
		"debt_status":   DebtSpecificAmount,
		"debt_amount":   "1500.50",
		"debt_currency": "USD",
		"debt_details":  "stale note",
	}, Update)
	require.NoError(t, err)
	assert.Equal(t, 1500.5, rec["debt_amount"])
	assert.Equal(t, "USD", rec["debt_currency"])
	assert.Nil(t, rec["debt_details"])

	rec, err = Aircraft.Prepare(map[string]any{"debt_status": DebtAuthorized, "debt_details": "bank letter"}, Update)
	require.NoError(t, err)
	assert.Equal(t, "bank letter", rec["debt_details"])
	assert.Contains(t, rec, "debt_amount")
	assert.Nil(t, rec["debt_amount"])
}

func TestPrepareUpdateUsesStoredAmount(t *testing.T) {
	current := Record{"debt_status": DebtPending, "debt_amount": 1500.0, "debt_currency": nil}

	rec, err := Aircraft.PrepareUpdate(map[string]any{"debt_status": DebtSpecificAmount}, current)
	require.NoError(t, err)
	assert.Equal(t, DebtSpecificAmount, rec["debt_status"])
	assert.NotContains(t, rec, "debt_amount", "the stored amount is left untouched")

	_, err = Aircraft.PrepareUpdate(map[string]any{"debt_status": DebtSpecificAmount}, Record{"debt_amount": nil})
	require.ErrorIs(t, err, ErrValidation)

	_, err = Aircraft.PrepareUpdate(map[string]any{"debt_status": DebtSpecificAmount, "debt_amount": nil}, current)
	require.ErrorIs(t, err, ErrValidation, "clearing the amount in the same request is rejected")
}

func TestPreparePilot(t *testing.T) {
	body := map[string]any{
		"name":                      "Ana Ruiz",
		"id_number":                 "RUZA800101",
		"license_number":            "LIC-1",
		"license_type":              "ATP",
		"license_expiry":            "2026-01-01",
		"medical_cert":              "MED-1",
		"medical_expiry":            "2025-09-01",
		"email":                     "ana@example.org",
		"night_rating":              "",
		"aircraft_rating_10_expiry": "2027-03-03",
	}
	rec, err := Pilot.Prepare(body, Create)
	require.NoError(t, err)
	assert.Nil(t, rec["night_rating"])
	assert.Equal(t, "2027-03-03", rec["aircraft_rating_10_expiry"])

	body["license_type"] = "Piloto Acrobático"
	_, err = Pilot.Prepare(body, Create)
	require.ErrorIs(t, err, ErrValidation)

	_, err = Pilot.Prepare(map[string]any{"email": "not-an-address"}, Update)
	require.ErrorIs(t, err, ErrValidation)
}

func TestSchemaCatalog(t *testing.T) {
	assert.Equal(t, []string{"registration", "insurance", "airworthiness_cert", "radio_station_cert", "registration_cert", "acoustic_cert"}, Aircraft.UniqueFields())
	assert.Equal(t, []string{"id_number"}, Pilot.UniqueFields())
	assert.Len(t, Pilot.Columns(), 9+AircraftRatingSlots*3+len(NamedRatings)*3)
	_, ok := Pilot.Field("other_rating_4_obs")
	assert.True(t, ok)
}

func TestConflictMessage(t *testing.T) {
	owner := Record{"registration": "XA-OLD"}
	assert.Equal(t, `registration "XA-OLD" already exists`, Aircraft.ConflictMessage("registration", "XA-OLD", owner))
	assert.Equal(t, `airworthiness certificate "AW-1" is already assigned to another aircraft (XA-OLD)`,
		Aircraft.ConflictMessage("airworthiness_cert", "AW-1", owner))
	assert.Equal(t, `insurance policy "P-9" is already assigned to another aircraft`,
		Aircraft.ConflictMessage("insurance", "P-9", nil))
}
