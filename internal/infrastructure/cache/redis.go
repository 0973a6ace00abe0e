package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fxpay-service/internal/application"
	"fxpay-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	rateKeyPrefix = "fx:rate:"
	symbolsKey    = "fx:symbols"

	// Hard expiry for rate entries. Freshness is decided per read from
	// the rate's FetchedAt; the key TTL only bounds how long a stale
	// entry can back a degraded quote.
	rateRetention = 24 * time.Hour
)

var _ application.RateCache = (*Redis)(nil)

// Redis is a shared rate cache backed by a single Redis instance. Rates
// are stored as JSON documents keyed by pair so multiple API replicas
// see the same quotes.
type Redis struct {
	Client    *redis.Client
	FreshFor  time.Duration
	SymbolTTL time.Duration
}

func NewRedis(client *redis.Client, freshFor, symbolTTL time.Duration) *Redis {
	return &Redis{Client: client, FreshFor: freshFor, SymbolTTL: symbolTTL}
}

func (c *Redis) GetRate(ctx context.Context, pair domain.Pair) (domain.Rate, bool, error) {
	r, ok, err := c.GetRateStale(ctx, pair)
	if err != nil || !ok {
		return domain.Rate{}, false, err
	}
	if !r.FreshAt(time.Now().UTC(), c.FreshFor) {
		return domain.Rate{}, false, nil
	}
	return r, true, nil
}

func (c *Redis) GetRateStale(ctx context.Context, pair domain.Pair) (domain.Rate, bool, error) {
	raw, err := c.Client.Get(ctx, rateKeyPrefix+string(pair)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Rate{}, false, nil
	}
	if err != nil {
		return domain.Rate{}, false, err
	}
	var r domain.Rate
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.Rate{}, false, err
	}
	return r, true, nil
}

func (c *Redis) PutRate(ctx context.Context, rate domain.Rate) error {
	raw, err := json.Marshal(rate)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, rateKeyPrefix+string(rate.Pair), raw, rateRetention).Err()
}

func (c *Redis) GetSymbols(ctx context.Context) (map[string]string, bool, error) {
	raw, err := c.Client.Get(ctx, symbolsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var symbols map[string]string
	if err := json.Unmarshal(raw, &symbols); err != nil {
		return nil, false, err
	}
	return symbols, true, nil
}

func (c *Redis) PutSymbols(ctx context.Context, symbols map[string]string) error {
	raw, err := json.Marshal(symbols)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, symbolsKey, raw, c.SymbolTTL).Err()
}
