package application

import (
	"context"
	"testing"
	"time"

	"fxpay-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validQuote() domain.Quote {
	return domain.NewQuote("quote-1", domain.Rate{
		Pair:      "GBP/EUR",
		Mid:       dec("1.1600"),
		FetchedAt: testNow,
		Source:    "live",
	}, testMarkup, testNow, 2*time.Minute, false)
}

func newPaymentService(fee FeePolicy, opts ...PaymentOption) (*PaymentService, *fakePaymentRepo, *fakeQuoteRepo, *fakeAuditRepo) {
	payments := &fakePaymentRepo{store: map[string]domain.Payment{}}
	quotes := &fakeQuoteRepo{store: map[string]domain.Quote{"quote-1": validQuote()}}
	audit := &fakeAuditRepo{}
	opts = append([]PaymentOption{
		WithPaymentClock(fakeClock{t: testNow}),
		WithPaymentIDGen(&seqIDGen{}),
	}, opts...)
	svc := NewPaymentService(payments, quotes, audit, NoopUoW{}, fee, opts...)
	return svc, payments, quotes, audit
}

func buildDraft(t *testing.T, svc *PaymentService) domain.Payment {
	t.Helper()
	p, err := svc.BuildPayment(context.Background(), BuildPaymentRequest{
		QuoteID:   "quote-1",
		Direction: domain.DirectionSend,
		Amount:    dec("1000.00"),
		Actor:     "user42",
	})
	require.NoError(t, err)
	return p
}

func Test_BuildPayment_SendScenario(t *testing.T) {
	t.Parallel()
	svc, _, _, audit := newPaymentService(FlatFee(dec("5.00")))

	p := buildDraft(t, svc)
	require.Equal(t, domain.PaymentStatusDraft, p.Status)
	require.Equal(t, "GBP", p.SourceCurrency)
	require.Equal(t, "EUR", p.TargetCurrency)
	require.True(t, p.FXRate.Equal(dec("1.1658")), "rate %s", p.FXRate)
	require.True(t, p.TargetAmount.Equal(dec("1165.80")), "target %s", p.TargetAmount)
	require.True(t, p.FeeAmount.Equal(dec("5.00")))
	require.True(t, p.TotalDebit.Equal(dec("1005.00")), "total %s", p.TotalDebit)
	require.Equal(t, 1, audit.countActions(p.ID, domain.ActionCreate))
}

func Test_BuildPayment_SendReceiveRoundTrip(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newPaymentService(NoFee())

	sent, err := svc.BuildPayment(context.Background(), BuildPaymentRequest{
		QuoteID:   "quote-1",
		Direction: domain.DirectionSend,
		Amount:    dec("1000.00"),
		Actor:     "user42",
	})
	require.NoError(t, err)

	back, err := svc.BuildPayment(context.Background(), BuildPaymentRequest{
		QuoteID:   "quote-1",
		Direction: domain.DirectionReceive,
		Amount:    sent.TargetAmount,
		Actor:     "user42",
	})
	require.NoError(t, err)

	// within one minor unit of the first payment's source amount
	diff := back.SourceAmount.Sub(sent.SourceAmount).Abs()
	require.True(t, diff.LessThanOrEqual(dec("0.01")), "diff %s", diff)
}

func Test_BuildPayment_ExpiredQuote(t *testing.T) {
	t.Parallel()
	svc, _, quotes, _ := newPaymentService(NoFee())
	q := quotes.store["quote-1"]
	q.ExpiresAt = testNow.Add(-time.Second)
	quotes.store["quote-1"] = q

	_, err := svc.BuildPayment(context.Background(), BuildPaymentRequest{
		QuoteID:   "quote-1",
		Direction: domain.DirectionSend,
		Amount:    dec("100"),
		Actor:     "user42",
	})
	require.ErrorIs(t, err, domain.ErrQuoteExpired)
}

func Test_BuildPayment_InvalidInput(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newPaymentService(NoFee())

	_, err := svc.BuildPayment(context.Background(), BuildPaymentRequest{
		QuoteID:   "quote-1",
		Direction: domain.DirectionSend,
		Amount:    dec("-5"),
		Actor:     "user42",
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = svc.BuildPayment(context.Background(), BuildPaymentRequest{
		QuoteID:   "quote-1",
		Direction: "sideways",
		Amount:    dec("100"),
		Actor:     "user42",
	})
	require.ErrorIs(t, err, ErrBadRequest)
}

func Test_BuildPayment_SingleUseQuoteConsumed(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newPaymentService(NoFee(), WithSingleUseQuotes(true))

	req := BuildPaymentRequest{
		QuoteID:   "quote-1",
		Direction: domain.DirectionSend,
		Amount:    dec("100"),
		Actor:     "user42",
	}
	_, err := svc.BuildPayment(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.BuildPayment(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrQuoteConsumed)
}

func Test_Approval_MakerChecker(t *testing.T) {
	t.Parallel()
	svc, _, _, audit := newPaymentService(NoFee())
	p := buildDraft(t, svc)

	// creator submits
	p2, err := svc.Submit(context.Background(), p.ID, "user42")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusPendingApproval, p2.Status)

	// creator cannot approve their own payment
	_, err = svc.Approve(context.Background(), p.ID, "user42", nil)
	require.ErrorIs(t, err, domain.ErrSelfApproval)

	// a different actor can
	p3, err := svc.Approve(context.Background(), p.ID, "user7", nil)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusApproved, p3.Status)
	require.Equal(t, 1, audit.countActions(p.ID, domain.ActionApprove))
}

func Test_Approval_RejectAppendsOneEvent(t *testing.T) {
	t.Parallel()
	svc, _, _, audit := newPaymentService(NoFee())
	p := buildDraft(t, svc)

	_, err := svc.Submit(context.Background(), p.ID, "user42")
	require.NoError(t, err)

	comment := "beneficiary details look off"
	p2, err := svc.Reject(context.Background(), p.ID, "user7", &comment)
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusRejected, p2.Status)
	require.Equal(t, 1, audit.countActions(p.ID, domain.ActionReject))

	// terminal: no further action succeeds, no extra event appears
	_, err = svc.Submit(context.Background(), p.ID, "user42")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	require.Equal(t, 1, audit.countActions(p.ID, domain.ActionReject))
}

func Test_Approval_IllegalLeavesStateUnchanged(t *testing.T) {
	t.Parallel()
	svc, payments, _, _ := newPaymentService(NoFee())
	p := buildDraft(t, svc)

	_, err := svc.Approve(context.Background(), p.ID, "user7", nil)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored := payments.store[p.ID]
	require.Equal(t, domain.PaymentStatusDraft, stored.Status)
	require.Equal(t, int64(0), stored.Version)
}

func Test_Approval_ConcurrentConflict(t *testing.T) {
	t.Parallel()
	svc, payments, _, _ := newPaymentService(NoFee())
	p := buildDraft(t, svc)
	_, err := svc.Submit(context.Background(), p.ID, "user42")
	require.NoError(t, err)

	// a racing writer bumps the version between this call's read and write
	payments.raceOnUpdate = func() {
		raced := payments.store[p.ID]
		raced.Version++
		payments.store[p.ID] = raced
	}

	_, err = svc.Approve(context.Background(), p.ID, "user7", nil)
	require.ErrorIs(t, err, ErrConflict)
}

func Test_SystemChain_Execution(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newPaymentService(NoFee())
	p := buildDraft(t, svc)
	_, err := svc.Submit(context.Background(), p.ID, "user42")
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), p.ID, "user7", nil)
	require.NoError(t, err)

	p2, err := svc.MarkSubmitted(context.Background(), p.ID, "EXT-123")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusSubmitted, p2.Status)
	require.NotNil(t, p2.ExternalRef)
	require.Equal(t, "EXT-123", *p2.ExternalRef)

	_, err = svc.MarkProcessing(context.Background(), p.ID)
	require.NoError(t, err)

	p3, err := svc.Fail(context.Background(), p.ID, "insufficient funds at provider")
	require.NoError(t, err)
	require.Equal(t, domain.PaymentStatusFailed, p3.Status)
	require.NotNil(t, p3.FailureReason)

	// one event per accepted transition plus the create entry
	events, err := svc.Events(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, events, 6)
}
