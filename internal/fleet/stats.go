package fleet

import "time"

// AircraftStats summarises fleet compliance.
type AircraftStats struct {
	Total              int `json:"total"`
	WithDebt           int `json:"withDebt"`
	ValidAirworthiness int `json:"validAirworthiness"`
	ValidRadio         int `json:"validRadio"`
	ValidInsurance     int `json:"validInsurance"`
	Alerts             int `json:"alerts"`
}

// PilotStats summarises pilot compliance.
type PilotStats struct {
	Total          int `json:"total"`
	ExpiredLicense int `json:"expiredLicense"`
	ExpiredMedical int `json:"expiredMedical"`
	Alerts         int `json:"alerts"`
}

// ComputeAircraftStats counts debt and certificates valid beyond the expiring window.
// Alerts is the number of aircraft outside the weakest valid category.
func ComputeAircraftStats(records []Record, now time.Time) AircraftStats {
	st := AircraftStats{Total: len(records)}
	for _, r := range records {
		if s := r.String("debt_status"); s != "" && s != DebtPaid {
			st.WithDebt++
		}
		if CertStatus(r.Date("airworthiness_expiry"), now) == StatusValid {
			st.ValidAirworthiness++
		}
		if CertStatus(r.Date("radio_station_expiry"), now) == StatusValid {
			st.ValidRadio++
		}
		if CertStatus(r.Date("insurance_expiry"), now) == StatusValid {
			st.ValidInsurance++
		}
	}
	st.Alerts = st.Total - min(st.ValidAirworthiness, st.ValidRadio, st.ValidInsurance)
	return st
}

// ComputePilotStats counts licenses and medicals expired before today.
func ComputePilotStats(records []Record, now time.Time) PilotStats {
	st := PilotStats{Total: len(records)}
	for _, r := range records {
		if CertStatus(r.Date("license_expiry"), now) == StatusExpired {
			st.ExpiredLicense++
		}
		if CertStatus(r.Date("medical_expiry"), now) == StatusExpired {
			st.ExpiredMedical++
		}
	}
	st.Alerts = st.ExpiredLicense + st.ExpiredMedical
	return st
}
