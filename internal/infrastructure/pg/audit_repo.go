package pg

import (
	"context"

	"fxpay-service/internal/domain"
)

// AuditRepo is append-only. There is deliberately no update or delete.
type AuditRepo struct{ db *DB }

func NewAuditRepo(db *DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Append(ctx context.Context, e domain.AuditEvent) error {
	const ins = `
        INSERT INTO audit_events(id, entity_type, entity_id, actor_id, action, comment, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.q(ctx).Exec(ctx, ins,
		e.ID, string(e.EntityType), e.EntityID, e.ActorID, string(e.Action), e.Comment, e.CreatedAt)
	return err
}

func (r *AuditRepo) ListByEntity(ctx context.Context, et domain.EntityType, entityID string) ([]domain.AuditEvent, error) {
	const sel = `
        SELECT id::text, entity_type, entity_id::text, actor_id, action, comment, created_at
        FROM audit_events
        WHERE entity_type=$1 AND entity_id=$2
        ORDER BY created_at, id`
	rows, err := r.db.q(ctx).Query(ctx, sel, string(et), entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		var et, action string
		if err := rows.Scan(&e.ID, &et, &e.EntityID, &e.ActorID, &action, &e.Comment, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EntityType = domain.EntityType(et)
		e.Action = domain.ApprovalAction(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
