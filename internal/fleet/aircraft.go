package fleet

import (
	"fmt"
	"regexp"
)

const ResourceAircraft = "aircraft"

// Debt statuses.
const (
	DebtPaid           = "paid"
	DebtPending        = "pending"
	DebtAuthorized     = "authorized"
	DebtSpecificAmount = "specific_amount"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Aircraft is the aircraft table schema.
var Aircraft = (&Schema{
	Resource:  ResourceAircraft,
	Table:     "aircraft",
	NameField: "registration",
	Fields: []Field{
		{Name: "registration", Required: true, Unique: true, Label: "registration"},
		{Name: "manufacturer", Required: true},
		{Name: "model", Required: true},
		{Name: "serial_number"},
		{Name: "predominant_colors"},
		{Name: "aircraft_use_type"},
		{Name: "holders"},
		{Name: "base_airport"},

		{Name: "debt_status", Required: true, Default: DebtPaid, Values: []string{DebtPaid, DebtPending, DebtAuthorized, DebtSpecificAmount}},
		{Name: "debt_details"},
		{Name: "debt_amount", Kind: Decimal},
		{Name: "debt_currency"},

		{Name: "insurance", Unique: true, Label: "insurance policy"},
		{Name: "insurance_company"},
		{Name: "insurance_expiry", Kind: Date},

		{Name: "airworthiness_cert", Unique: true, Label: "airworthiness certificate"},
		{Name: "airworthiness_classification"},
		{Name: "airworthiness_expiry", Kind: Date},

		{Name: "radio_station_cert", Unique: true, Label: "radio station certificate"},
		{Name: "radio_station_expiry", Kind: Date},

		{Name: "registration_cert", Unique: true, Label: "registration certificate"},
		{Name: "registration_date", Kind: Date},

		{Name: "acoustic_cert", Unique: true, Label: "acoustic certificate"},
		{Name: "acoustic_expiry", Kind: Date},
	},
	Expiries: []Expiry{
		{Category: "airworthiness", Field: "airworthiness_expiry"},
		{Category: "radio", Field: "radio_station_expiry"},
		{Category: "insurance", Field: "insurance_expiry"},
		{Category: "acoustic", Field: "acoustic_expiry"},
	},
	Finish: finishDebt,
}).init()

// finishDebt enforces the debt dependent fields whenever debt_status is written.
// details only apply to authorized debt, amount and currency only to specific_amount.
// A specific_amount update may rely on the amount already stored.
func finishDebt(rec, current Record, _ Mode) error {
	if c, ok := rec["debt_currency"].(string); ok && !currencyPattern.MatchString(c) {
		return fmt.Errorf("%w: debt_currency must be a three letter ISO code", ErrValidation)
	}
	status, ok := rec["debt_status"].(string)
	if !ok {
		return nil
	}
	if status != DebtAuthorized {
		rec["debt_details"] = nil
	}
	if status != DebtSpecificAmount {
		rec["debt_amount"] = nil
		rec["debt_currency"] = nil
		return nil
	}
	amount, sent := rec["debt_amount"]
	if !sent {
		amount = current["debt_amount"]
	}
	if amount == nil {
		return fmt.Errorf("%w: debt_amount is required when debt_status is %s", ErrValidation, DebtSpecificAmount)
	}
	return nil
}
