package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fxpay-service/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QuoteService orchestrates source selection, cache use, markup and
// expiry. A quote request always yields a usable (possibly degraded)
// quote or domain.ErrUnsupportedPair; upstream failures are absorbed by
// the fallback chain and surface only as the degraded flag.
type QuoteService struct {
	cache    RateCache
	source   RateSource // active source: live when a credential is configured, else the mock
	fallback RateSource // mock, used when the active source and the stale cache both fail
	symbols  SymbolSource
	quotes   QuoteRepo
	audit    AuditRepo
	uow      UnitOfWork
	clock    Clock
	idgen    IDGen
	log      *zap.Logger

	validity     time.Duration
	fetchTimeout time.Duration
}

type QuoteOption func(*QuoteService)

func WithQuoteClock(c Clock) QuoteOption  { return func(s *QuoteService) { s.clock = c } }
func WithQuoteIDGen(g IDGen) QuoteOption  { return func(s *QuoteService) { s.idgen = g } }
func WithQuoteLogger(l *zap.Logger) QuoteOption {
	return func(s *QuoteService) { s.log = l }
}
func WithSymbolSource(ss SymbolSource) QuoteOption {
	return func(s *QuoteService) { s.symbols = ss }
}

func NewQuoteService(cache RateCache, source, fallback RateSource, quotes QuoteRepo, audit AuditRepo, uow UnitOfWork, validity, fetchTimeout time.Duration, opts ...QuoteOption) *QuoteService {
	s := &QuoteService{
		cache:        cache,
		source:       source,
		fallback:     fallback,
		quotes:       quotes,
		audit:        audit,
		uow:          uow,
		validity:     validity,
		fetchTimeout: fetchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.idgen == nil {
		s.idgen = defaultIDGen{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// RequestQuote resolves a rate through the fallback chain, applies the
// markup and persists the issued quote together with its audit entry.
func (s *QuoteService) RequestQuote(ctx context.Context, pair string, markupPct decimal.Decimal, actor string) (domain.Quote, error) {
	if !domain.ValidatePair(pair) {
		return domain.Quote{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedPair, pair)
	}
	p := domain.Pair(pair)

	rate, degraded := s.resolveRate(ctx, p)
	if !rate.Mid.IsPositive() {
		return domain.Quote{}, fmt.Errorf("%w: non-positive rate for %s", domain.ErrUnsupportedPair, pair)
	}

	q := domain.NewQuote(s.idgen.NewID(), rate, markupPct, s.clock.Now(), s.validity, degraded)
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.quotes.Insert(ctx, q); err != nil {
			return err
		}
		return s.audit.Append(ctx, domain.AuditEvent{
			ID:         s.idgen.NewID(),
			EntityType: domain.EntityQuote,
			EntityID:   q.ID,
			ActorID:    actor,
			Action:     domain.ActionIssue,
			CreatedAt:  q.IssuedAt,
		})
	})
	if err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

// resolveRate walks the chain: fresh cache, active source, stale cache,
// mock. The second return reports whether the rate is degraded.
func (s *QuoteService) resolveRate(ctx context.Context, p domain.Pair) (domain.Rate, bool) {
	if rate, ok, err := s.cache.GetRate(ctx, p); err != nil {
		s.log.Warn("rate_cache.read_failed", zap.String("pair", string(p)), zap.Error(err))
	} else if ok {
		return rate, false
	}

	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	rate, err := s.source.Fetch(fctx, p)
	cancel()
	if err == nil {
		if perr := s.cache.PutRate(ctx, rate); perr != nil {
			s.log.Warn("rate_cache.write_failed", zap.String("pair", string(p)), zap.Error(perr))
		}
		return rate, false
	}
	s.log.Warn("rate_source.degraded", zap.String("pair", string(p)), zap.Error(err))

	if stale, ok, cerr := s.cache.GetRateStale(ctx, p); cerr == nil && ok {
		return stale, true
	}

	// The mock source cannot fail; a quote is always produced.
	mock, _ := s.fallback.Fetch(ctx, p)
	return mock, true
}

func (s *QuoteService) GetQuote(ctx context.Context, id string) (domain.Quote, error) {
	return s.quotes.GetByID(ctx, id)
}

// SupportedCurrencies returns the symbol list: cached, else from the
// live source (refreshing the cache), else the built-in table.
func (s *QuoteService) SupportedCurrencies(ctx context.Context) []string {
	if symbols, ok, err := s.cache.GetSymbols(ctx); err == nil && ok {
		return sortedCodes(symbols)
	}
	if s.symbols != nil {
		fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		symbols, err := s.symbols.Symbols(fctx)
		cancel()
		if err == nil && len(symbols) > 0 {
			if perr := s.cache.PutSymbols(ctx, symbols); perr != nil {
				s.log.Warn("symbol_cache.write_failed", zap.Error(perr))
			}
			return sortedCodes(symbols)
		}
		if err != nil {
			s.log.Warn("symbol_source.degraded", zap.Error(err))
		}
	}
	codes := make([]string, 0, len(domain.SupportedCurrency))
	for code := range domain.SupportedCurrency {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func sortedCodes(symbols map[string]string) []string {
	codes := make([]string, 0, len(symbols))
	for code := range symbols {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
