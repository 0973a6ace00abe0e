package pg

import (
	"context"
	"errors"

	"fxpay-service/internal/application"
	"fxpay-service/internal/domain"

	"github.com/jackc/pgx/v5"
)

type QuoteRepo struct{ db *DB }

func NewQuoteRepo(db *DB) *QuoteRepo { return &QuoteRepo{db: db} }

func (r *QuoteRepo) Insert(ctx context.Context, q domain.Quote) error {
	const ins = `
        INSERT INTO quotes(id, pair, base_rate, markup_pct, final_rate,
                           issued_at, expires_at, degraded, source)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.q(ctx).Exec(ctx, ins,
		q.ID, string(q.Pair), q.BaseRate, q.MarkupPct, q.FinalRate,
		q.IssuedAt, q.ExpiresAt, q.Degraded, q.Source)
	return err
}

func (r *QuoteRepo) GetByID(ctx context.Context, id string) (domain.Quote, error) {
	const sel = `
        SELECT id::text, pair, base_rate, markup_pct, final_rate,
               issued_at, expires_at, degraded, source, consumed_at
        FROM quotes WHERE id=$1`
	var out domain.Quote
	var pair string
	err := r.db.q(ctx).QueryRow(ctx, sel, id).Scan(
		&out.ID, &pair, &out.BaseRate, &out.MarkupPct, &out.FinalRate,
		&out.IssuedAt, &out.ExpiresAt, &out.Degraded, &out.Source, &out.ConsumedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quote{}, application.ErrNotFound
	}
	if err != nil {
		return domain.Quote{}, err
	}
	out.Pair = domain.Pair(pair)
	return out, nil
}

// Consume marks a single-use quote as spent. The guard on consumed_at
// makes a replay lose the race cleanly.
func (r *QuoteRepo) Consume(ctx context.Context, id string) error {
	const up = `
        UPDATE quotes SET consumed_at=NOW()
        WHERE id=$1 AND consumed_at IS NULL`
	tag, err := r.db.q(ctx).Exec(ctx, up, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrQuoteConsumed
	}
	return nil
}
