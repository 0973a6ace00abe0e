package application

import (
	"context"

	"fxpay-service/internal/domain"
)

// RateSource fetches a mid-market rate for a pair. Implementations may
// block on network I/O; callers bound them with a context timeout.
type RateSource interface {
	Fetch(ctx context.Context, pair domain.Pair) (domain.Rate, error)
}

// SymbolSource lists the currencies an upstream supports. Optional; the
// mock source has a fixed table instead.
type SymbolSource interface {
	Symbols(ctx context.Context) (map[string]string, error)
}

// RateCache is a TTL-bounded store of per-pair rates and a longer-TTL
// symbol list. Rate reads respect the freshness window; GetRateStale
// ignores it so a stale rate can still back a degraded quote. Writes are
// last-writer-wins; a cache error is never fatal to a quote request.
type RateCache interface {
	GetRate(ctx context.Context, pair domain.Pair) (domain.Rate, bool, error)
	GetRateStale(ctx context.Context, pair domain.Pair) (domain.Rate, bool, error)
	PutRate(ctx context.Context, rate domain.Rate) error
	GetSymbols(ctx context.Context) (map[string]string, bool, error)
	PutSymbols(ctx context.Context, symbols map[string]string) error
}

type QuoteRepo interface {
	Insert(ctx context.Context, q domain.Quote) error
	GetByID(ctx context.Context, id string) (domain.Quote, error)
	// Consume marks a single-use quote as spent; a second call returns
	// domain.ErrQuoteConsumed.
	Consume(ctx context.Context, id string) error
}

type PaymentRepo interface {
	Create(ctx context.Context, p domain.Payment) error
	GetByID(ctx context.Context, id string) (domain.Payment, error)
	// UpdateState persists a transitioned payment iff the stored version
	// still equals expectedVersion, incrementing it; ErrConflict otherwise.
	UpdateState(ctx context.Context, p domain.Payment, expectedVersion int64) error
	ListByStatus(ctx context.Context, status domain.PaymentStatus, limit int) ([]domain.Payment, error)
}

// AuditRepo is the append-only trail. Entries are never updated or
// deleted.
type AuditRepo interface {
	Append(ctx context.Context, e domain.AuditEvent) error
	ListByEntity(ctx context.Context, et domain.EntityType, entityID string) ([]domain.AuditEvent, error)
}

// ExecutionOutcome is the provider-reported state of a submitted payment.
type ExecutionOutcome string

const (
	OutcomeSubmitted ExecutionOutcome = "submitted"
	OutcomeCompleted ExecutionOutcome = "completed"
	OutcomeFailed    ExecutionOutcome = "failed"
)

// ExecutionProvider is the external collaborator that moves funds.
type ExecutionProvider interface {
	Submit(ctx context.Context, p domain.Payment) (externalRef string, err error)
	Status(ctx context.Context, externalRef string) (ExecutionOutcome, *string, error)
}
