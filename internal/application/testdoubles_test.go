package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fxpay-service/internal/domain"
)

var ErrRepo = errors.New("repo error")

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type fakeRateSource struct {
	out   domain.Rate
	err   error
	calls int
}

func (f *fakeRateSource) Fetch(_ context.Context, pair domain.Pair) (domain.Rate, error) {
	f.calls++
	if f.err != nil {
		return domain.Rate{}, f.err
	}
	out := f.out
	if out.Pair == "" {
		out.Pair = pair
	}
	return out, nil
}

type fakeRateCache struct {
	rates   map[domain.Pair]domain.Rate
	fresh   map[domain.Pair]bool
	symbols map[string]string
	err     error
	puts    int
}

func newFakeRateCache() *fakeRateCache {
	return &fakeRateCache{rates: map[domain.Pair]domain.Rate{}, fresh: map[domain.Pair]bool{}}
}

func (f *fakeRateCache) GetRate(_ context.Context, pair domain.Pair) (domain.Rate, bool, error) {
	if f.err != nil {
		return domain.Rate{}, false, f.err
	}
	r, ok := f.rates[pair]
	if !ok || !f.fresh[pair] {
		return domain.Rate{}, false, nil
	}
	return r, true, nil
}

func (f *fakeRateCache) GetRateStale(_ context.Context, pair domain.Pair) (domain.Rate, bool, error) {
	if f.err != nil {
		return domain.Rate{}, false, f.err
	}
	r, ok := f.rates[pair]
	return r, ok, nil
}

func (f *fakeRateCache) PutRate(_ context.Context, rate domain.Rate) error {
	if f.err != nil {
		return f.err
	}
	f.puts++
	f.rates[rate.Pair] = rate
	f.fresh[rate.Pair] = true
	return nil
}

func (f *fakeRateCache) GetSymbols(context.Context) (map[string]string, bool, error) {
	if f.symbols == nil {
		return nil, false, nil
	}
	return f.symbols, true, nil
}

func (f *fakeRateCache) PutSymbols(_ context.Context, symbols map[string]string) error {
	f.symbols = symbols
	return nil
}

type fakeQuoteRepo struct {
	store map[string]domain.Quote
	err   error
}

func (f *fakeQuoteRepo) Insert(_ context.Context, q domain.Quote) error {
	if f.err != nil {
		return f.err
	}
	if f.store == nil {
		f.store = map[string]domain.Quote{}
	}
	f.store[q.ID] = q
	return nil
}

func (f *fakeQuoteRepo) GetByID(_ context.Context, id string) (domain.Quote, error) {
	if f.err != nil {
		return domain.Quote{}, f.err
	}
	q, ok := f.store[id]
	if !ok {
		return domain.Quote{}, ErrNotFound
	}
	return q, nil
}

func (f *fakeQuoteRepo) Consume(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	q, ok := f.store[id]
	if !ok {
		return ErrNotFound
	}
	if q.ConsumedAt != nil {
		return domain.ErrQuoteConsumed
	}
	now := time.Now()
	q.ConsumedAt = &now
	f.store[id] = q
	return nil
}

type fakePaymentRepo struct {
	store map[string]domain.Payment
	err   error
	// runs once between the caller's read and its write, to stage a
	// concurrent writer
	raceOnUpdate func()
}

func (f *fakePaymentRepo) Create(_ context.Context, p domain.Payment) error {
	if f.err != nil {
		return f.err
	}
	if f.store == nil {
		f.store = map[string]domain.Payment{}
	}
	f.store[p.ID] = p
	return nil
}

func (f *fakePaymentRepo) GetByID(_ context.Context, id string) (domain.Payment, error) {
	if f.err != nil {
		return domain.Payment{}, f.err
	}
	p, ok := f.store[id]
	if !ok {
		return domain.Payment{}, ErrNotFound
	}
	return p, nil
}

func (f *fakePaymentRepo) UpdateState(_ context.Context, p domain.Payment, expectedVersion int64) error {
	if f.err != nil {
		return f.err
	}
	if f.raceOnUpdate != nil {
		f.raceOnUpdate()
		f.raceOnUpdate = nil
	}
	cur, ok := f.store[p.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != expectedVersion {
		return ErrConflict
	}
	p.Version = expectedVersion + 1
	f.store[p.ID] = p
	return nil
}

func (f *fakePaymentRepo) ListByStatus(_ context.Context, status domain.PaymentStatus, limit int) ([]domain.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Payment
	for _, p := range f.store {
		if p.Status == status && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeAuditRepo struct {
	events []domain.AuditEvent
	err    error
}

func (f *fakeAuditRepo) Append(_ context.Context, e domain.AuditEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func (f *fakeAuditRepo) ListByEntity(_ context.Context, et domain.EntityType, entityID string) ([]domain.AuditEvent, error) {
	var out []domain.AuditEvent
	for _, e := range f.events {
		if e.EntityType == et && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAuditRepo) countActions(entityID string, action domain.ApprovalAction) int {
	n := 0
	for _, e := range f.events {
		if e.EntityID == entityID && e.Action == action {
			n++
		}
	}
	return n
}
