package worker

import (
	"context"
	"errors"
	"time"

	"fxpay-service/internal/application"
	"fxpay-service/internal/domain"

	"go.uber.org/zap"
)

var _ application.Worker = (*ExecWorker)(nil)

// ExecWorker drives approved payments through the execution provider.
// Each tick it submits approved payments and polls the provider for the
// in-flight ones, advancing one state machine transition per payment.
// Version conflicts mean another replica won that payment this tick and
// are not errors.
type ExecWorker struct {
	Payments *application.PaymentService
	Provider application.ExecutionProvider

	PollEvery  time.Duration
	BatchLimit int
	Log        *zap.Logger
}

func (w *ExecWorker) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.PollEvery <= 0 {
		w.PollEvery = time.Second
	}
	if w.BatchLimit <= 0 {
		w.BatchLimit = 10
	}

	t := time.NewTicker(w.PollEvery)
	defer t.Stop()

	log.Info("exec_worker_started", zap.Duration("poll_every", w.PollEvery))
	for {
		select {
		case <-ctx.Done():
			log.Info("exec_worker_stopped")
			return
		case <-t.C:
			w.tick(ctx, log)
		}
	}
}

func (w *ExecWorker) tick(ctx context.Context, log *zap.Logger) {
	w.submitApproved(ctx, log)
	w.pollInFlight(ctx, log, domain.PaymentStatusSubmitted)
	w.pollInFlight(ctx, log, domain.PaymentStatusProcessing)
}

func (w *ExecWorker) submitApproved(ctx context.Context, log *zap.Logger) {
	approved, err := w.Payments.ListApproved(ctx, w.BatchLimit)
	if err != nil {
		log.Warn("list_approved_failed", zap.Error(err))
		return
	}
	for _, p := range approved {
		ref, err := w.Provider.Submit(ctx, p)
		if err != nil {
			log.Warn("submit_failed", zap.String("payment_id", p.ID), zap.Error(err))
			continue
		}
		if _, err := w.Payments.MarkSubmitted(ctx, p.ID, ref); err != nil {
			if errors.Is(err, application.ErrConflict) {
				continue
			}
			log.Warn("mark_submitted_failed", zap.String("payment_id", p.ID), zap.Error(err))
			continue
		}
		log.Info("payment_submitted", zap.String("payment_id", p.ID), zap.String("external_ref", ref))
	}
}

func (w *ExecWorker) pollInFlight(ctx context.Context, log *zap.Logger, status domain.PaymentStatus) {
	payments, err := w.Payments.ListByStatus(ctx, status, w.BatchLimit)
	if err != nil {
		log.Warn("list_in_flight_failed", zap.String("status", string(status)), zap.Error(err))
		return
	}
	for _, p := range payments {
		if p.ExternalRef == nil {
			log.Warn("missing_external_ref", zap.String("payment_id", p.ID))
			continue
		}
		outcome, reason, err := w.Provider.Status(ctx, *p.ExternalRef)
		if err != nil {
			log.Warn("status_poll_failed", zap.String("payment_id", p.ID), zap.Error(err))
			continue
		}
		w.advance(ctx, log, p, outcome, reason)
	}
}

// advance applies at most one transition; a payment that the provider
// already finished reaches its terminal state on the following tick.
func (w *ExecWorker) advance(ctx context.Context, log *zap.Logger, p domain.Payment, outcome application.ExecutionOutcome, reason *string) {
	var err error
	switch {
	case p.Status == domain.PaymentStatusSubmitted && outcome != application.OutcomeSubmitted:
		_, err = w.Payments.MarkProcessing(ctx, p.ID)
	case p.Status == domain.PaymentStatusProcessing && outcome == application.OutcomeCompleted:
		_, err = w.Payments.Complete(ctx, p.ID)
	case p.Status == domain.PaymentStatusProcessing && outcome == application.OutcomeFailed:
		msg := "execution failed"
		if reason != nil {
			msg = *reason
		}
		_, err = w.Payments.Fail(ctx, p.ID, msg)
	default:
		return
	}
	if err != nil && !errors.Is(err, application.ErrConflict) {
		log.Warn("advance_failed",
			zap.String("payment_id", p.ID),
			zap.String("status", string(p.Status)),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
		return
	}
	log.Info("payment_advanced",
		zap.String("payment_id", p.ID),
		zap.String("from", string(p.Status)),
		zap.String("outcome", string(outcome)),
	)
}
