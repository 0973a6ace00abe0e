package redisstore

import (
	"context"
	"time"

	"fxpay-service/internal/application"

	"github.com/redis/go-redis/v9"
)

const reservationPrefix = "idem:payment:"

var _ application.IdempotencyStore = (*Store)(nil)

// Store reserves idempotency keys for payment creation. A reservation
// expires after TTL so an abandoned key does not block retries forever.
type Store struct {
	Client *redis.Client
	TTL    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{Client: client, TTL: ttl}
}

func (s *Store) TryReserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.Client.SetNX(ctx, reservationPrefix+key, "1", s.TTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
