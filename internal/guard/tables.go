package guard

import (
	"vpfs.org/internal/auth"
	"vpfs.org/internal/fleet"
)

// Aircraft gates aircraft mutations. Registration and acoustic certificate
// fields are not listed and therefore ungated.
var Aircraft = newTable(fleet.ResourceAircraft,
	Group{Name: "basic", Permission: auth.PermManageAircraftBasic, Fields: []string{
		"registration", "manufacturer", "model", "serial_number",
		"predominant_colors", "aircraft_use_type", "holders", "base_airport",
	}},
	Group{Name: "debt", Permission: auth.PermManageDebt, Fields: []string{
		"debt_status", "debt_details", "debt_amount", "debt_currency",
	}},
	Group{Name: "insurance", Permission: auth.PermManageInsurance, Fields: []string{
		"insurance", "insurance_company", "insurance_expiry",
	}},
	Group{Name: "airworthiness", Permission: auth.PermManageAirworthiness, Fields: []string{
		"airworthiness_cert", "airworthiness_classification", "airworthiness_expiry",
	}},
	Group{Name: "radio", Permission: auth.PermManageRadio, Fields: []string{
		"radio_station_cert", "radio_station_expiry",
	}},
)

// Pilot gates pilot mutations. Rating slots are ungated.
var Pilot = newTable(fleet.ResourcePilot,
	Group{Name: "pilot-basic", Permission: auth.PermManagePilotBasic, Fields: []string{
		"name", "id_number", "email", "phone",
	}},
	Group{Name: "pilot-license", Permission: auth.PermManagePilotLicense, Fields: []string{
		"license_number", "license_type", "license_expiry",
	}},
	Group{Name: "pilot-medical", Permission: auth.PermManagePilotMedical, Fields: []string{
		"medical_cert", "medical_expiry",
	}},
)
