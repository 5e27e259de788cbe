// Package core holds the domain model of the family assistant: transactions,
// budgets, financial goals and shopping lists, together with the derived
// ledger math. The package is pure: no I/O, no clocks other than explicit
// parameters, so every invariant is testable in isolation.
package core

import (
	"fmt"
	"math"
)

// DefaultCurrency is the currency assumed when a transaction or budget does
// not name one.
const DefaultCurrency = "RUB"

// Money is an amount in minor units (kopecks for RUB) with its currency.
type Money struct {
	Cents    int64
	Currency string
}

var currencySymbols = map[string]string{
	"RUB": "₽",
	"USD": "$",
	"EUR": "€",
}

// CentsFromFloat converts a major-unit amount (as extracted from free text)
// to minor units, rounding half away from zero on the third decimal.
func CentsFromFloat(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Float returns the major-unit value for display purposes. Calculations must
// stay in cents.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// Format renders the amount with its currency symbol, e.g. "1500.00 ₽".
func (m Money) Format() string {
	symbol, ok := currencySymbols[m.Currency]
	if !ok {
		symbol = m.Currency
	}
	return fmt.Sprintf("%.2f %s", m.Float(), symbol)
}

// FormatCents renders a bare cents value in the default currency.
func FormatCents(cents int64) string {
	return Money{Cents: cents, Currency: DefaultCurrency}.Format()
}
