package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"fxpay-service/internal/application"
	"fxpay-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memPayments struct {
	mu    sync.Mutex
	store map[string]domain.Payment
}

func (m *memPayments) Create(_ context.Context, p domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[p.ID] = p
	return nil
}

func (m *memPayments) GetByID(_ context.Context, id string) (domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.Payment{}, application.ErrNotFound
	}
	return p, nil
}

func (m *memPayments) UpdateState(_ context.Context, p domain.Payment, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.store[p.ID]
	if !ok {
		return application.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return application.ErrConflict
	}
	p.Version = expectedVersion + 1
	m.store[p.ID] = p
	return nil
}

func (m *memPayments) ListByStatus(_ context.Context, status domain.PaymentStatus, limit int) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Payment
	for _, p := range m.store {
		if p.Status == status {
			out = append(out, p)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memPayments) get(id string) domain.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[id]
}

type memAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (m *memAudit) Append(_ context.Context, e domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memAudit) ListByEntity(_ context.Context, et domain.EntityType, id string) ([]domain.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AuditEvent
	for _, e := range m.events {
		if e.EntityType == et && e.EntityID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubQuotes struct{}

func (stubQuotes) Insert(context.Context, domain.Quote) error { return nil }
func (stubQuotes) GetByID(context.Context, string) (domain.Quote, error) {
	return domain.Quote{}, application.ErrNotFound
}
func (stubQuotes) Consume(context.Context, string) error { return nil }

type scriptedProvider struct {
	mu      sync.Mutex
	seq     int
	outcome application.ExecutionOutcome
	reason  *string
}

func (p *scriptedProvider) Submit(_ context.Context, _ domain.Payment) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return fmt.Sprintf("EXT-%d", p.seq), nil
}

func (p *scriptedProvider) Status(context.Context, string) (application.ExecutionOutcome, *string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome, p.reason, nil
}

func approvedPayment(id string) domain.Payment {
	return domain.Payment{
		ID:             id,
		SourceCurrency: "GBP",
		TargetCurrency: "EUR",
		SourceAmount:   decimal.RequireFromString("1000.00"),
		TargetAmount:   decimal.RequireFromString("1165.80"),
		FXRate:         decimal.RequireFromString("1.1658"),
		Status:         domain.PaymentStatusApproved,
		CreatedBy:      "user42",
	}
}

func runWorker(t *testing.T, provider application.ExecutionProvider, seed ...domain.Payment) (*memPayments, *memAudit) {
	t.Helper()
	payments := &memPayments{store: map[string]domain.Payment{}}
	for _, p := range seed {
		payments.store[p.ID] = p
	}
	audit := &memAudit{}
	svc := application.NewPaymentService(payments, stubQuotes{}, audit, application.NoopUoW{}, application.NoFee())

	w := &ExecWorker{
		Payments:   svc,
		Provider:   provider,
		PollEvery:  10 * time.Millisecond,
		BatchLimit: 5,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	go w.Start(ctx)
	<-ctx.Done()
	return payments, audit
}

func TestExecWorker_CompletesApprovedPayment(t *testing.T) {
	provider := &scriptedProvider{outcome: application.OutcomeCompleted}
	payments, audit := runWorker(t, provider, approvedPayment("pay-1"))

	got := payments.get("pay-1")
	require.Equal(t, domain.PaymentStatusCompleted, got.Status)
	require.NotNil(t, got.ExternalRef)
	require.Equal(t, "EXT-1", *got.ExternalRef)

	trail, err := audit.ListByEntity(context.Background(), domain.EntityPayment, "pay-1")
	require.NoError(t, err)
	// execute, process, complete
	require.Len(t, trail, 3)
	for _, e := range trail {
		require.Equal(t, domain.SystemActor, e.ActorID)
	}
}

func TestExecWorker_RecordsFailureReason(t *testing.T) {
	reason := "insufficient funds"
	provider := &scriptedProvider{outcome: application.OutcomeFailed, reason: &reason}
	payments, _ := runWorker(t, provider, approvedPayment("pay-1"))

	got := payments.get("pay-1")
	require.Equal(t, domain.PaymentStatusFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	require.Equal(t, reason, *got.FailureReason)
}

func TestExecWorker_PendingOutcomeHolds(t *testing.T) {
	provider := &scriptedProvider{outcome: application.OutcomeSubmitted}
	payments, _ := runWorker(t, provider, approvedPayment("pay-1"))

	got := payments.get("pay-1")
	require.Equal(t, domain.PaymentStatusSubmitted, got.Status)
}
