/*
Package generic provides the domain-agnostic building blocks of the
settlement engine.

PURPOSE:
  Calendar days, inclusive periods, identifiers and currencies shared by
  the schedule and settlement packages.
  Nothing in here knows what a lesson or a payout is.

KEY CONCEPTS IN THIS FILE (types.go):
  - DocumentID: CMS-style identifier of a stored record
  - Currency:   ISO-like currency code carried next to amounts
  - Money helpers: rounding to whole currency units

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Whole units: every reported amount is rounded to an integer unit
  3. Immutability: Date and Period are values, never mutated in loops

SEE ALSO:
  - time.go:   Date type and month helpers
  - period.go: Period intersection and iteration
  - errors.go: Sentinel and field errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DocumentID string

// =============================================================================
// CURRENCY
// =============================================================================

type Currency string

const (
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// DefaultCurrency is used when a record carries no currency.
const DefaultCurrency = CurrencyRUB

// Symbol returns the display symbol for the currency.
func (c Currency) Symbol() string {
	switch c {
	case CurrencyRUB, "":
		return "₽"
	case CurrencyUSD:
		return "$"
	case CurrencyEUR:
		return "€"
	default:
		return string(c)
	}
}

// =============================================================================
// MONEY HELPERS
// =============================================================================

// RoundUnit rounds to the nearest whole currency unit, half away from zero.
func RoundUnit(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// ClampZero floors negative amounts at zero.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
