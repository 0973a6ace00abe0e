package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a time-bounded, markup-adjusted exchange-rate offer. Quotes are
// immutable after issuance; they only age out.
type Quote struct {
	ID         string
	Pair       Pair
	BaseRate   decimal.Decimal
	MarkupPct  decimal.Decimal
	FinalRate  decimal.Decimal
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Degraded   bool
	Source     string
	ConsumedAt *time.Time
}

// rateScale is the number of decimal places a quoted rate is carried at.
const rateScale = 4

// NewQuote applies the markup to a base rate and stamps the validity window.
func NewQuote(id string, rate Rate, markupPct decimal.Decimal, issuedAt time.Time, validity time.Duration, degraded bool) Quote {
	final := rate.Mid.Mul(decimal.NewFromInt(1).Add(markupPct)).Round(rateScale)
	return Quote{
		ID:        id,
		Pair:      rate.Pair,
		BaseRate:  rate.Mid,
		MarkupPct: markupPct,
		FinalRate: final,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(validity),
		Degraded:  degraded,
		Source:    rate.Source,
	}
}

// ExpiredAt reports whether the quote may no longer back a payment.
func (q Quote) ExpiredAt(now time.Time) bool {
	return !q.ExpiresAt.After(now)
}

func (q Quote) Consumed() bool { return q.ConsumedAt != nil }
