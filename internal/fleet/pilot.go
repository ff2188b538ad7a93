package fleet

import "strconv"

const ResourcePilot = "pilot"

// License types.
var LicenseTypes = []string{"Alumno Piloto", "Piloto Privado", "Piloto Comercial", "ATP"}

// AircraftRatingSlots is the number of aircraft-type rating slots on a pilot.
const AircraftRatingSlots = 10

// NamedRatings are the additional rating slots, each with observation and expiry.
var NamedRatings = []string{
	"ifr_rating",
	"language_proficiency",
	"night_rating",
	"multi_engine_rating",
	"formation_rating",
	"instructor_rating",
	"other_rating",
	"other_rating_2",
	"other_rating_3",
	"other_rating_4",
}

// Pilot is the pilots table schema.
var Pilot = (&Schema{
	Resource:  ResourcePilot,
	Table:     "pilots",
	NameField: "name",
	Fields: append([]Field{
		{Name: "name", Required: true},
		{Name: "id_number", Required: true, Unique: true, Label: "id number"},
		{Name: "email", Email: true},
		{Name: "phone"},
		{Name: "license_number", Required: true},
		{Name: "license_type", Required: true, Values: LicenseTypes},
		{Name: "license_expiry", Kind: Date, Required: true},
		{Name: "medical_cert", Required: true},
		{Name: "medical_expiry", Kind: Date, Required: true},
	}, ratingFields()...),
	Expiries: []Expiry{
		{Category: "license", Field: "license_expiry"},
		{Category: "medical", Field: "medical_expiry"},
	},
}).init()

func ratingFields() []Field {
	var out []Field
	for i := 1; i <= AircraftRatingSlots; i++ {
		base := "aircraft_rating_" + strconv.Itoa(i)
		out = append(out,
			Field{Name: base},
			Field{Name: base + "_function"},
			Field{Name: base + "_expiry", Kind: Date},
		)
	}
	for _, base := range NamedRatings {
		out = append(out,
			Field{Name: base},
			Field{Name: base + "_obs"},
			Field{Name: base + "_expiry", Kind: Date},
		)
	}
	return out
}
