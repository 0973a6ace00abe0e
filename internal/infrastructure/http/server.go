package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fxpay-service/internal/application"
	"fxpay-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime/types"
	"github.com/shopspring/decimal"
)

const (
	actorHeader       = "X-Actor-ID"
	idempotencyHeader = "X-Idempotency-Key"
)

type Server struct {
	quotes   *application.QuoteService
	payments *application.PaymentService
	idem     application.IdempotencyStore
	markup   decimal.Decimal
	ping     func(ctx context.Context) error
}

func NewServer(quotes *application.QuoteService, payments *application.PaymentService, idem application.IdempotencyStore, markup decimal.Decimal, ping func(ctx context.Context) error) *Server {
	if idem == nil {
		idem = application.NoopIdempotency{}
	}
	return &Server{quotes: quotes, payments: payments, idem: idem, markup: markup, ping: ping}
}

type quoteRequest struct {
	Pair      string           `json:"pair"`
	MarkupPct *decimal.Decimal `json:"markup_pct,omitempty"`
}

type quoteResponse struct {
	ID        string          `json:"id"`
	Pair      string          `json:"pair"`
	BaseRate  decimal.Decimal `json:"base_rate"`
	MarkupPct decimal.Decimal `json:"markup_pct"`
	FinalRate decimal.Decimal `json:"final_rate"`
	IssuedAt  time.Time       `json:"issued_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Degraded  bool            `json:"degraded"`
	Source    string          `json:"source"`
}

func toQuoteResponse(q domain.Quote) quoteResponse {
	return quoteResponse{
		ID:        q.ID,
		Pair:      string(q.Pair),
		BaseRate:  q.BaseRate,
		MarkupPct: q.MarkupPct,
		FinalRate: q.FinalRate,
		IssuedAt:  q.IssuedAt,
		ExpiresAt: q.ExpiresAt,
		Degraded:  q.Degraded,
		Source:    q.Source,
	}
}

type paymentRequest struct {
	QuoteID       string          `json:"quote_id"`
	Direction     string          `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference,omitempty"`
	ExecutionDate *types.Date     `json:"execution_date,omitempty"`
}

type paymentResponse struct {
	ID             string          `json:"id"`
	QuoteID        *string         `json:"quote_id,omitempty"`
	SourceCurrency string          `json:"source_currency"`
	TargetCurrency string          `json:"target_currency"`
	SourceAmount   decimal.Decimal `json:"source_amount"`
	TargetAmount   decimal.Decimal `json:"target_amount"`
	FXRate         decimal.Decimal `json:"fx_rate"`
	FeeAmount      decimal.Decimal `json:"fee_amount"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	Reference      string          `json:"reference,omitempty"`
	ExecutionDate  *types.Date     `json:"execution_date,omitempty"`
	Status         string          `json:"status"`
	CreatedBy      string          `json:"created_by"`
	ExternalRef    *string         `json:"external_ref,omitempty"`
	FailureReason  *string         `json:"failure_reason,omitempty"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toPaymentResponse(p domain.Payment) paymentResponse {
	out := paymentResponse{
		ID:             p.ID,
		QuoteID:        p.QuoteID,
		SourceCurrency: p.SourceCurrency,
		TargetCurrency: p.TargetCurrency,
		SourceAmount:   p.SourceAmount,
		TargetAmount:   p.TargetAmount,
		FXRate:         p.FXRate,
		FeeAmount:      p.FeeAmount,
		TotalDebit:     p.TotalDebit,
		Reference:      p.Reference,
		Status:         string(p.Status),
		CreatedBy:      p.CreatedBy,
		ExternalRef:    p.ExternalRef,
		FailureReason:  p.FailureReason,
		Version:        p.Version,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.ExecutionDate != nil {
		out.ExecutionDate = &types.Date{Time: *p.ExecutionDate}
	}
	return out
}

type auditEventResponse struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type actionRequest struct {
	Comment *string `json:"comment,omitempty"`
}

func (s *Server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var body quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Pair == "" {
		writeError(w, http.StatusBadRequest, "pair is required")
		return
	}
	markup := s.markup
	if body.MarkupPct != nil {
		if body.MarkupPct.IsNegative() {
			writeError(w, http.StatusBadRequest, "markup_pct must not be negative")
			return
		}
		markup = *body.MarkupPct
	}
	actor := r.Header.Get(actorHeader)
	if actor == "" {
		actor = "anonymous"
	}

	q, err := s.quotes.RequestQuote(r.Context(), body.Pair, markup, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toQuoteResponse(q))
}

func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.quotes.GetQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"currencies": s.quotes.SupportedCurrencies(r.Context()),
	})
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	actor := r.Header.Get(actorHeader)
	if actor == "" {
		writeError(w, http.StatusBadRequest, actorHeader+" header is required")
		return
	}
	var body paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.QuoteID == "" {
		writeError(w, http.StatusBadRequest, "quote_id is required")
		return
	}

	if key := r.Header.Get(idempotencyHeader); key != "" {
		ok, err := s.idem.TryReserve(r.Context(), key)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "idempotency check failed")
			return
		}
		if !ok {
			writeError(w, http.StatusConflict, "duplicate request")
			return
		}
	}

	req := application.BuildPaymentRequest{
		QuoteID:   body.QuoteID,
		Direction: domain.Direction(body.Direction),
		Amount:    body.Amount,
		Reference: body.Reference,
		Actor:     actor,
	}
	if body.ExecutionDate != nil {
		d := body.ExecutionDate.Time
		req.ExecutionDate = &d
	}

	p, err := s.payments.BuildPayment(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.payments.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (s *Server) handleAction(action domain.ApprovalAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := r.Header.Get(actorHeader)
		if actor == "" {
			writeError(w, http.StatusBadRequest, actorHeader+" header is required")
			return
		}
		var body actionRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		}
		p, err := s.payments.Apply(r.Context(), chi.URLParam(r, "id"), actor, action, body.Comment)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPaymentResponse(p))
	}
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.payments.GetPayment(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	events, err := s.payments.Events(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]auditEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, auditEventResponse{
			ID:        e.ID,
			ActorID:   e.ActorID,
			Action:    string(e.Action),
			Comment:   e.Comment,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, application.ErrConflict),
		errors.Is(err, domain.ErrQuoteConsumed),
		errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSelfApproval):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrQuoteExpired):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, application.ErrBadRequest),
		errors.Is(err, domain.ErrUnsupportedPair),
		errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
