package provider

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"fxpay-service/internal/application"
	"fxpay-service/internal/domain"

	"github.com/shopspring/decimal"
)

// Ensure Mock implements application.RateSource.
var _ application.RateSource = (*Mock)(nil)

// baseRates quotes every supported currency against GBP. Cross rates are
// derived as base[target]/base[source].
var baseRates = map[string]decimal.Decimal{
	"GBP": decimal.RequireFromString("1.0000"),
	"EUR": decimal.RequireFromString("1.1650"),
	"USD": decimal.RequireFromString("1.2720"),
	"CHF": decimal.RequireFromString("1.1250"),
	"JPY": decimal.RequireFromString("145.50"),
	"CAD": decimal.RequireFromString("1.6850"),
	"AUD": decimal.RequireFromString("1.8450"),
	"NZD": decimal.RequireFromString("1.9750"),
	"SEK": decimal.RequireFromString("13.25"),
	"NOK": decimal.RequireFromString("13.15"),
	"DKK": decimal.RequireFromString("8.68"),
	"PLN": decimal.RequireFromString("5.05"),
	"CZK": decimal.RequireFromString("28.50"),
}

// jitterBound caps the simulated market fluctuation at ±0.5%.
const jitterBound = 0.005

// Mock is a synthetic rate source: a fixed base-rate table with bounded
// pseudo-random jitter. It never fails and so terminates the quote
// engine's fallback chain.
type Mock struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMock() *Mock {
	return &Mock{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewMockSeeded returns a deterministic mock for tests.
func NewMockSeeded(seed int64) *Mock {
	return &Mock{rnd: rand.New(rand.NewSource(seed))}
}

func (m *Mock) Fetch(_ context.Context, pair domain.Pair) (domain.Rate, error) {
	src, ok := baseRates[pair.Source()]
	if !ok {
		return domain.Rate{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedPair, pair)
	}
	tgt, ok := baseRates[pair.Target()]
	if !ok {
		return domain.Rate{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedPair, pair)
	}

	m.mu.Lock()
	f := m.rnd.Float64()
	m.mu.Unlock()
	jitter := decimal.NewFromFloat(f*2*jitterBound - jitterBound)

	cross := tgt.Div(src)
	mid := cross.Mul(decimal.NewFromInt(1).Add(jitter)).Round(4)

	return domain.Rate{
		Pair:      pair,
		Mid:       mid,
		FetchedAt: time.Now().UTC(),
		Source:    "mock",
	}, nil
}

// Symbols lists the mock's fixed table.
func (m *Mock) Symbols(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(baseRates))
	for code := range baseRates {
		out[code] = code
	}
	return out, nil
}
