package application

import (
	"context"
	"fmt"
	"time"

	"fxpay-service/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BuildPaymentRequest carries everything needed to derive a payment from
// a quote. Amount fixes the source side for send and the target side for
// receive.
type BuildPaymentRequest struct {
	QuoteID       string
	Direction     domain.Direction
	Amount        decimal.Decimal
	Reference     string
	ExecutionDate *time.Time
	Actor         string
}

// PaymentService builds payment drafts from quotes and drives every
// status change through the approval state machine. Each accepted
// transition appends exactly one audit event in the same transaction as
// the state change.
type PaymentService struct {
	payments PaymentRepo
	quotes   QuoteRepo
	audit    AuditRepo
	uow      UnitOfWork
	fee      FeePolicy
	clock    Clock
	idgen    IDGen
	log      *zap.Logger

	// singleUseQuotes makes building a payment consume its quote, so a
	// second build against the same quote fails.
	singleUseQuotes bool
}

type PaymentOption func(*PaymentService)

func WithPaymentClock(c Clock) PaymentOption { return func(s *PaymentService) { s.clock = c } }
func WithPaymentIDGen(g IDGen) PaymentOption { return func(s *PaymentService) { s.idgen = g } }
func WithPaymentLogger(l *zap.Logger) PaymentOption {
	return func(s *PaymentService) { s.log = l }
}
func WithSingleUseQuotes(on bool) PaymentOption {
	return func(s *PaymentService) { s.singleUseQuotes = on }
}

func NewPaymentService(payments PaymentRepo, quotes QuoteRepo, audit AuditRepo, uow UnitOfWork, fee FeePolicy, opts ...PaymentOption) *PaymentService {
	s := &PaymentService{
		payments: payments,
		quotes:   quotes,
		audit:    audit,
		uow:      uow,
		fee:      fee,
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

// BuildPayment derives a draft payment from a non-expired quote.
// Monetary math carries full precision; each stored amount is rounded
// once, half-even, to the currency's minor units.
func (s *PaymentService) BuildPayment(ctx context.Context, req BuildPaymentRequest) (domain.Payment, error) {
	if !domain.ValidDirection(req.Direction) {
		return domain.Payment{}, fmt.Errorf("%w: direction %q", ErrBadRequest, req.Direction)
	}
	if !req.Amount.IsPositive() {
		return domain.Payment{}, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, req.Amount)
	}

	q, err := s.quotes.GetByID(ctx, req.QuoteID)
	if err != nil {
		return domain.Payment{}, err
	}
	now := s.clock.Now()
	if q.ExpiredAt(now) {
		return domain.Payment{}, fmt.Errorf("%w: quote %s expired at %s", domain.ErrQuoteExpired, q.ID, q.ExpiresAt.Format(time.RFC3339))
	}
	if s.singleUseQuotes && q.Consumed() {
		return domain.Payment{}, fmt.Errorf("%w: quote %s", domain.ErrQuoteConsumed, q.ID)
	}

	src, tgt := q.Pair.Source(), q.Pair.Target()
	var source, target decimal.Decimal
	switch req.Direction {
	case domain.DirectionSend:
		source = req.Amount
		target = req.Amount.Mul(q.FinalRate)
	case domain.DirectionReceive:
		target = req.Amount
		source = req.Amount.Div(q.FinalRate)
	}
	source = domain.RoundMinor(source, src)
	target = domain.RoundMinor(target, tgt)
	fee := domain.RoundMinor(s.fee(source, src), src)

	quoteID := q.ID
	p := domain.Payment{
		ID:             s.idgen.NewID(),
		QuoteID:        &quoteID,
		SourceCurrency: src,
		TargetCurrency: tgt,
		SourceAmount:   source,
		TargetAmount:   target,
		FXRate:         q.FinalRate,
		FeeAmount:      fee,
		TotalDebit:     source.Add(fee),
		Reference:      req.Reference,
		ExecutionDate:  req.ExecutionDate,
		Status:         domain.PaymentStatusDraft,
		CreatedBy:      req.Actor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		if s.singleUseQuotes {
			if err := s.quotes.Consume(ctx, q.ID); err != nil {
				return err
			}
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return err
		}
		return s.audit.Append(ctx, domain.AuditEvent{
			ID:         s.idgen.NewID(),
			EntityType: domain.EntityPayment,
			EntityID:   p.ID,
			ActorID:    req.Actor,
			Action:     domain.ActionCreate,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return p, nil
}

// Apply moves a payment through one transition. The guarded lookup in
// domain.NextStatus decides legality; the update and the audit entry
// commit atomically, with an optimistic version check so two concurrent
// calls on the same payment cannot both succeed.
func (s *PaymentService) Apply(ctx context.Context, paymentID, actor string, action domain.ApprovalAction, comment *string) (domain.Payment, error) {
	return s.apply(ctx, paymentID, actor, action, comment, nil)
}

func (s *PaymentService) apply(ctx context.Context, paymentID, actor string, action domain.ApprovalAction, comment *string, mutate func(*domain.Payment)) (domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	next, err := domain.NextStatus(p, actor, action)
	if err != nil {
		return domain.Payment{}, err
	}

	now := s.clock.Now()
	updated := p
	updated.Status = next
	updated.UpdatedAt = now
	if mutate != nil {
		mutate(&updated)
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.payments.UpdateState(ctx, updated, p.Version); err != nil {
			return err
		}
		return s.audit.Append(ctx, domain.AuditEvent{
			ID:         s.idgen.NewID(),
			EntityType: domain.EntityPayment,
			EntityID:   paymentID,
			ActorID:    actor,
			Action:     action,
			Comment:    comment,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return domain.Payment{}, err
	}
	updated.Version = p.Version + 1
	s.log.Info("payment.transition",
		zap.String("payment_id", paymentID),
		zap.String("action", string(action)),
		zap.String("from", string(p.Status)),
		zap.String("to", string(next)),
		zap.String("actor", actor),
	)
	return updated, nil
}

func (s *PaymentService) Submit(ctx context.Context, paymentID, actor string) (domain.Payment, error) {
	return s.Apply(ctx, paymentID, actor, domain.ActionSubmit, nil)
}

func (s *PaymentService) Approve(ctx context.Context, paymentID, actor string, comment *string) (domain.Payment, error) {
	return s.Apply(ctx, paymentID, actor, domain.ActionApprove, comment)
}

func (s *PaymentService) Reject(ctx context.Context, paymentID, actor string, comment *string) (domain.Payment, error) {
	return s.Apply(ctx, paymentID, actor, domain.ActionReject, comment)
}

// MarkSubmitted records the execution provider's reference while moving
// approved -> submitted.
func (s *PaymentService) MarkSubmitted(ctx context.Context, paymentID, externalRef string) (domain.Payment, error) {
	return s.apply(ctx, paymentID, domain.SystemActor, domain.ActionExecute, nil, func(p *domain.Payment) {
		p.ExternalRef = &externalRef
	})
}

func (s *PaymentService) MarkProcessing(ctx context.Context, paymentID string) (domain.Payment, error) {
	return s.Apply(ctx, paymentID, domain.SystemActor, domain.ActionProcess, nil)
}

func (s *PaymentService) Complete(ctx context.Context, paymentID string) (domain.Payment, error) {
	return s.Apply(ctx, paymentID, domain.SystemActor, domain.ActionComplete, nil)
}

func (s *PaymentService) Fail(ctx context.Context, paymentID, reason string) (domain.Payment, error) {
	return s.apply(ctx, paymentID, domain.SystemActor, domain.ActionFail, &reason, func(p *domain.Payment) {
		p.FailureReason = &reason
	})
}

func (s *PaymentService) GetPayment(ctx context.Context, id string) (domain.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

func (s *PaymentService) ListApproved(ctx context.Context, limit int) ([]domain.Payment, error) {
	return s.payments.ListByStatus(ctx, domain.PaymentStatusApproved, limit)
}

func (s *PaymentService) ListByStatus(ctx context.Context, status domain.PaymentStatus, limit int) ([]domain.Payment, error) {
	return s.payments.ListByStatus(ctx, status, limit)
}

func (s *PaymentService) Events(ctx context.Context, paymentID string) ([]domain.AuditEvent, error) {
	return s.audit.ListByEntity(ctx, domain.EntityPayment, paymentID)
}
