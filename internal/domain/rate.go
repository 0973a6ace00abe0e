package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate is a mid-market exchange rate as reported by a source.
type Rate struct {
	Pair      Pair
	Mid       decimal.Decimal
	FetchedAt time.Time
	Source    string
}

// FreshAt reports whether the rate is within the freshness window at
// the given instant.
func (r Rate) FreshAt(now time.Time, window time.Duration) bool {
	return now.Sub(r.FetchedAt) < window
}
