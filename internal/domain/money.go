package domain

import "github.com/shopspring/decimal"

// RoundMinor rounds an amount to the currency's minor-unit precision
// using round-half-even. Intermediate computations carry full precision;
// this is applied exactly once, at the persistence boundary.
func RoundMinor(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.RoundBank(MinorUnits(currency))
}
