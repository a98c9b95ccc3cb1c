// Package money implements Swiss monetary primitives: VAT by rate class,
// Rappen (0.05) rounding, amount parsing/formatting, and the payment
// reference checksum algorithms.
package money

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for malformed amounts, references or rate
// classes. It is the only hard failure in this package: callers abort the
// affected document, never a whole batch.
var ErrInvalidInput = errors.New("invalid input")

// RateClass is a named Swiss VAT bracket. Call sites use the class, not
// the raw percentage, so yearly rate changes stay local to this table.
type RateClass string

const (
	RateNormal        RateClass = "normal"        // 8.1%
	RateReduced       RateClass = "reduced"       // 2.6%
	RateAccommodation RateClass = "accommodation" // 3.8%
	RateExempt        RateClass = "exempt"        // 0%
	RateExport        RateClass = "export"        // 0%
)

// Rates in force since 1 January 2024 (AFC).
var rateTable = map[RateClass]float64{
	RateNormal:        0.081,
	RateReduced:       0.026,
	RateAccommodation: 0.038,
	RateExempt:        0,
	RateExport:        0,
}

// vatCodes are the AFC form codes per rate class.
var vatCodes = map[RateClass]string{
	RateNormal:        "N81",
	RateReduced:       "R26",
	RateAccommodation: "H38",
	RateExempt:        "E00",
	RateExport:        "E00",
}

// Rate returns the fractional VAT rate for a class.
func Rate(class RateClass) (float64, error) {
	r, ok := rateTable[class]
	if !ok {
		return 0, fmt.Errorf("%w: unknown rate class %q", ErrInvalidInput, class)
	}
	return r, nil
}

// Classes lists all known rate classes.
func Classes() []RateClass {
	return []RateClass{RateNormal, RateReduced, RateAccommodation, RateExempt, RateExport}
}

// ClassForPercent snaps a percentage (e.g. 8.1) to a known rate class
// within the given tolerance in percentage points. ok is false when no
// class is close enough.
func ClassForPercent(percent, tolerance float64) (RateClass, bool) {
	best := RateClass("")
	bestDiff := math.MaxFloat64
	for _, class := range Classes() {
		diff := math.Abs(rateTable[class]*100 - percent)
		if diff < bestDiff {
			best = class
			bestDiff = diff
		}
	}
	if bestDiff > tolerance {
		return "", false
	}
	return best, true
}

// Breakdown is a VAT decomposition of an amount. All monetary fields are
// Rappen-rounded.
type Breakdown struct {
	Net       float64   `json:"net"`
	VATRate   float64   `json:"vat_rate"` // percentage, e.g. 8.1
	VATCode   string    `json:"vat_code"` // AFC code, e.g. N81
	RateClass RateClass `json:"rate_class"`
	VATAmount float64   `json:"vat_amount"`
	Gross     float64   `json:"gross"`
}

// RoundRappen rounds to the nearest 0.05, half-to-even on the 0.05 grid.
// This is the Swiss cash-rounding rule and the rounding used for every
// monetary output of this package.
func RoundRappen(amount float64) float64 {
	return math.RoundToEven(amount*20) / 20
}

// VATFromNet computes VAT and gross from a net amount.
func VATFromNet(net float64, class RateClass) (Breakdown, error) {
	rate, err := Rate(class)
	if err != nil {
		return Breakdown{}, err
	}
	vat := RoundRappen(net * rate)
	return Breakdown{
		Net:       RoundRappen(net),
		VATRate:   rate * 100,
		VATCode:   vatCodes[class],
		RateClass: class,
		VATAmount: vat,
		Gross:     RoundRappen(RoundRappen(net) + vat),
	}, nil
}

// VATFromGross decomposes a gross amount: net = gross / (1 + rate).
func VATFromGross(gross float64, class RateClass) (Breakdown, error) {
	rate, err := Rate(class)
	if err != nil {
		return Breakdown{}, err
	}
	g := RoundRappen(gross)
	net := RoundRappen(gross / (1 + rate))
	return Breakdown{
		Net:       net,
		VATRate:   rate * 100,
		VATCode:   vatCodes[class],
		RateClass: class,
		VATAmount: RoundRappen(g - net),
		Gross:     g,
	}, nil
}
