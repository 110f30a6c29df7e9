// Package pricing splits VAT-inclusive prices into base and VAT portions.
// All monetary math in the codebase rounds through Round2 so that stored
// amounts and recomputed amounts agree within the reconciliation tolerance.
package pricing

import (
	"fmt"
	"math"

	"mercaplaza/internal/models"
)

// vatRates are the statutory percentage rates per VAT category.
var vatRates = map[string]float64{
	models.VATCategoryExcluded: 0,
	models.VATCategoryExempt:   0,
	models.VATCategoryReduced:  5,
	models.VATCategoryGeneral:  19,
}

// Round2 rounds to 2 decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RateFor returns the percentage rate for a VAT category.
func RateFor(category string) (float64, error) {
	rate, ok := vatRates[category]
	if !ok {
		return 0, fmt.Errorf("unknown VAT category %q", category)
	}
	return rate, nil
}

// ValidCategory reports whether category names a known VAT class.
func ValidCategory(category string) bool {
	_, ok := vatRates[category]
	return ok
}

// Split derives (base, vat) from a VAT-inclusive price so that
// base = price/(1+rate) and vat = price - base, both rounded to 2 decimals.
// For zero-rate categories base equals price and vat is 0.
func Split(price float64, category string) (base, vat float64, err error) {
	if price <= 0 {
		return 0, 0, fmt.Errorf("price must be positive, got %.2f", price)
	}
	rate, err := RateFor(category)
	if err != nil {
		return 0, 0, err
	}
	base = Round2(price / (1 + rate/100))
	vat = Round2(price - base)
	return base, vat, nil
}

// Percentage applies a percentage rate to an amount, rounded to 2 decimals.
func Percentage(amount, rate float64) float64 {
	return Round2(amount * rate / 100)
}
