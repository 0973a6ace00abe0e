package domain

import "time"

type EntityType string

const (
	EntityQuote   EntityType = "quote"
	EntityPayment EntityType = "payment"
)

// AuditEvent is one append-only trail entry. Entries for payments carry
// the approval action that moved the state machine; quote entries record
// issuance. Events are immutable once written.
type AuditEvent struct {
	ID         string
	EntityType EntityType
	EntityID   string
	ActorID    string
	Action     ApprovalAction
	Comment    *string
	CreatedAt  time.Time
}

// ActionIssue is recorded when a quote is issued and when a payment draft
// is created; it never moves the state machine.
const (
	ActionIssue  ApprovalAction = "issue"
	ActionCreate ApprovalAction = "create"
)
