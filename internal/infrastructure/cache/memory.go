package cache

import (
	"context"
	"sync"
	"time"

	"fxpay-service/internal/application"
	"fxpay-service/internal/domain"
)

var _ application.RateCache = (*Memory)(nil)

// Memory is an in-process rate cache. Entries are kept for the life of
// the process; freshness is judged against the rate's FetchedAt on every
// read, so an aged entry is still reachable through GetRateStale.
type Memory struct {
	mu        sync.RWMutex
	rates     map[domain.Pair]domain.Rate
	symbols   map[string]string
	symbolsAt time.Time

	freshFor  time.Duration
	symbolTTL time.Duration
	now       func() time.Time
}

func NewMemory(freshFor, symbolTTL time.Duration) *Memory {
	return &Memory{
		rates:     make(map[domain.Pair]domain.Rate),
		freshFor:  freshFor,
		symbolTTL: symbolTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) GetRate(_ context.Context, pair domain.Pair) (domain.Rate, bool, error) {
	m.mu.RLock()
	r, ok := m.rates[pair]
	m.mu.RUnlock()
	if !ok || !r.FreshAt(m.now(), m.freshFor) {
		return domain.Rate{}, false, nil
	}
	return r, true, nil
}

func (m *Memory) GetRateStale(_ context.Context, pair domain.Pair) (domain.Rate, bool, error) {
	m.mu.RLock()
	r, ok := m.rates[pair]
	m.mu.RUnlock()
	if !ok {
		return domain.Rate{}, false, nil
	}
	return r, true, nil
}

func (m *Memory) PutRate(_ context.Context, rate domain.Rate) error {
	m.mu.Lock()
	m.rates[rate.Pair] = rate
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetSymbols(_ context.Context) (map[string]string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.symbols == nil || m.now().Sub(m.symbolsAt) > m.symbolTTL {
		return nil, false, nil
	}
	out := make(map[string]string, len(m.symbols))
	for k, v := range m.symbols {
		out[k] = v
	}
	return out, true, nil
}

func (m *Memory) PutSymbols(_ context.Context, symbols map[string]string) error {
	cp := make(map[string]string, len(symbols))
	for k, v := range symbols {
		cp[k] = v
	}
	m.mu.Lock()
	m.symbols = cp
	m.symbolsAt = m.now()
	m.mu.Unlock()
	return nil
}
