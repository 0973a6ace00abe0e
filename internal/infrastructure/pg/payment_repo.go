package pg

import (
	"context"
	"errors"

	"fxpay-service/internal/application"
	"fxpay-service/internal/domain"
	"fxpay-service/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepo struct{ db *DB }

func NewPaymentRepo(db *DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `
        id::text, quote_id::text, source_currency, target_currency,
        source_amount, target_amount, fx_rate, fee_amount, total_debit,
        reference, execution_date, status, created_by, external_ref,
        failure_reason, version, created_at, updated_at`

func (r *PaymentRepo) Create(ctx context.Context, p domain.Payment) error {
	const ins = `
        INSERT INTO payments(id, quote_id, source_currency, target_currency,
                             source_amount, target_amount, fx_rate, fee_amount,
                             total_debit, reference, execution_date, status,
                             created_by, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	log := logx.L().With(
		zap.String("repo", "payment"),
		zap.String("operation", "Create"),
		zap.String("id", p.ID),
	)
	_, err := r.db.q(ctx).Exec(ctx, ins,
		p.ID, p.QuoteID, p.SourceCurrency, p.TargetCurrency,
		p.SourceAmount, p.TargetAmount, p.FXRate, p.FeeAmount,
		p.TotalDebit, p.Reference, p.ExecutionDate, string(p.Status),
		p.CreatedBy, p.Version, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	log.Info("sql.exec_success")
	return nil
}

func (r *PaymentRepo) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	const sel = `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	row := r.db.q(ctx).QueryRow(ctx, sel, id)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, application.ErrNotFound
	}
	return p, err
}

// UpdateState persists a transitioned payment guarded by the version the
// caller read. A concurrent transition wins the race and this one
// surfaces as ErrConflict.
func (r *PaymentRepo) UpdateState(ctx context.Context, p domain.Payment, expectedVersion int64) error {
	const up = `
        UPDATE payments
        SET status=$2, external_ref=$3, failure_reason=$4,
            version=version+1, updated_at=$5
        WHERE id=$1 AND version=$6`
	log := logx.L().With(
		zap.String("repo", "payment"),
		zap.String("operation", "UpdateState"),
		zap.String("id", p.ID),
		zap.String("status", string(p.Status)),
		zap.Int64("expected_version", expectedVersion),
	)
	tag, err := r.db.q(ctx).Exec(ctx, up,
		p.ID, string(p.Status), p.ExternalRef, p.FailureReason, p.UpdatedAt, expectedVersion)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, p.ID); err != nil {
			return err
		}
		log.Warn("sql.version_conflict")
		return application.ErrConflict
	}
	log.Info("sql.exec_success")
	return nil
}

func (r *PaymentRepo) ListByStatus(ctx context.Context, status domain.PaymentStatus, limit int) ([]domain.Payment, error) {
	const sel = `SELECT ` + paymentColumns + `
        FROM payments WHERE status=$1
        ORDER BY updated_at
        LIMIT $2`
	rows, err := r.db.q(ctx).Query(ctx, sel, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	var status string
	err := row.Scan(
		&p.ID, &p.QuoteID, &p.SourceCurrency, &p.TargetCurrency,
		&p.SourceAmount, &p.TargetAmount, &p.FXRate, &p.FeeAmount, &p.TotalDebit,
		&p.Reference, &p.ExecutionDate, &status, &p.CreatedBy, &p.ExternalRef,
		&p.FailureReason, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Payment{}, err
	}
	p.Status = domain.PaymentStatus(status)
	return p, nil
}
