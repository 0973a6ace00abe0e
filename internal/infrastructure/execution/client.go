package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fxpay-service/internal/application"
	"fxpay-service/internal/domain"
	"fxpay-service/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
)

var ErrProviderUnavailable = errors.New("execution provider unavailable")

var _ application.ExecutionProvider = (*Client)(nil)

// Client talks to the downstream payment execution API. Submits are not
// retried here; a failed submit stays approved and the worker picks it
// up again on the next tick.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *httpx.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &httpx.Client{HTTP: &http.Client{Timeout: timeout}, Token: apiKey},
	}
}

type submitRequest struct {
	PaymentID      string          `json:"payment_id"`
	SourceCurrency string          `json:"source_currency"`
	TargetCurrency string          `json:"target_currency"`
	SourceAmount   decimal.Decimal `json:"source_amount"`
	TargetAmount   decimal.Decimal `json:"target_amount"`
	FXRate         decimal.Decimal `json:"fx_rate"`
	Reference      string          `json:"reference,omitempty"`
	ExecutionDate  *string         `json:"execution_date,omitempty"`
}

type submitResponse struct {
	Reference string `json:"reference"`
}

type statusResponse struct {
	Status        string  `json:"status"`
	FailureReason *string `json:"failure_reason,omitempty"`
}

func (c *Client) Submit(ctx context.Context, p domain.Payment) (string, error) {
	body := submitRequest{
		PaymentID:      p.ID,
		SourceCurrency: p.SourceCurrency,
		TargetCurrency: p.TargetCurrency,
		SourceAmount:   p.SourceAmount,
		TargetAmount:   p.TargetAmount,
		FXRate:         p.FXRate,
		Reference:      p.Reference,
	}
	if p.ExecutionDate != nil {
		d := p.ExecutionDate.Format("2006-01-02")
		body.ExecutionDate = &d
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/payments", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrProviderUnavailable, err)
	}
	if out.Reference == "" {
		return "", fmt.Errorf("%w: empty reference", ErrProviderUnavailable)
	}
	return out.Reference, nil
}

func (c *Client) Status(ctx context.Context, externalRef string) (application.ExecutionOutcome, *string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/payments/"+externalRef, nil)
	if err != nil {
		return "", nil, err
	}
	var out statusResponse
	if err := c.http().DoJSON(ctx, req, &out); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	switch out.Status {
	case "completed":
		return application.OutcomeCompleted, nil, nil
	case "failed", "rejected":
		return application.OutcomeFailed, out.FailureReason, nil
	default:
		return application.OutcomeSubmitted, nil, nil
	}
}

func (c *Client) http() *httpx.Client {
	if c.HTTP == nil {
		c.HTTP = &httpx.Client{HTTP: &http.Client{Timeout: 4 * time.Second}, Token: c.APIKey}
	}
	return c.HTTP
}

func (c *Client) httpClient() *http.Client {
	if h := c.http().HTTP; h != nil {
		return h
	}
	return http.DefaultClient
}
