package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusDraft           PaymentStatus = "draft"
	PaymentStatusPendingApproval PaymentStatus = "pending_approval"
	PaymentStatusApproved        PaymentStatus = "approved"
	PaymentStatusRejected        PaymentStatus = "rejected"
	PaymentStatusSubmitted       PaymentStatus = "submitted"
	PaymentStatusProcessing      PaymentStatus = "processing"
	PaymentStatusCompleted       PaymentStatus = "completed"
	PaymentStatusFailed          PaymentStatus = "failed"
)

// Terminal statuses are final; no transition leaves them.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusRejected, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// Direction selects which side of a payment the requested amount fixes.
type Direction string

const (
	DirectionSend    Direction = "send"    // amount is the source amount
	DirectionReceive Direction = "receive" // amount is the target amount
)

func ValidDirection(d Direction) bool {
	return d == DirectionSend || d == DirectionReceive
}

// Payment is created in draft by the builder and mutated exclusively
// through the approval state machine. Version backs the optimistic
// concurrency check on every transition.
type Payment struct {
	ID             string
	QuoteID        *string
	SourceCurrency string
	TargetCurrency string
	SourceAmount   decimal.Decimal
	TargetAmount   decimal.Decimal
	FXRate         decimal.Decimal
	FeeAmount      decimal.Decimal
	TotalDebit     decimal.Decimal
	Reference      string
	ExecutionDate  *time.Time
	Status         PaymentStatus
	CreatedBy      string
	ExternalRef    *string
	FailureReason  *string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
