package application

import "github.com/shopspring/decimal"

// FeePolicy is a pure function of amount and currency producing the fee
// charged in the source currency. The result is rounded once, at the
// persistence boundary.
type FeePolicy func(amount decimal.Decimal, currency string) decimal.Decimal

// PercentFee charges a fraction of the amount, e.g. 0.001 for 0.1%.
func PercentFee(pct decimal.Decimal) FeePolicy {
	return func(amount decimal.Decimal, _ string) decimal.Decimal {
		return amount.Mul(pct)
	}
}

// FlatFee charges a fixed amount regardless of size.
func FlatFee(fee decimal.Decimal) FeePolicy {
	return func(decimal.Decimal, string) decimal.Decimal {
		return fee
	}
}

// NoFee charges nothing.
func NoFee() FeePolicy {
	return func(decimal.Decimal, string) decimal.Decimal {
		return decimal.Zero
	}
}
