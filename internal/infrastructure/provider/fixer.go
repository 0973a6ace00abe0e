package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fxpay-service/internal/application"
	"fxpay-service/internal/domain"
	"fxpay-service/internal/infrastructure/httpx"

	"github.com/shopspring/decimal"
)

const (
	fixerLatestPath  = "/latest"
	fixerSymbolsPath = "/symbols"
)

// Upstream failure classes. None of them escapes the quote engine as a
// hard error; they only steer the fallback chain and the logs.
var (
	ErrUnavailable = errors.New("rate source unavailable")
	ErrRateLimited = errors.New("rate source rate-limited")
	ErrInvalidKey  = errors.New("rate source rejected access key")
)

// FixerAPI fetches live rates from a Fixer-style upstream. The upstream
// quotes every currency against a single pivot (EUR on the free tier), so
// cross rates are triangulated: rate(A,B) = pivot(B)/pivot(A).
type FixerAPI struct {
	BaseURL string
	APIKey  string
	Pivot   string
	Client  *httpx.Client
}

var _ application.RateSource = (*FixerAPI)(nil)
var _ application.SymbolSource = (*FixerAPI)(nil)

type fixerLatestResp struct {
	Success   bool               `json:"success"`
	Timestamp int64              `json:"timestamp"`
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	Error     *fixerError        `json:"error,omitempty"`
}

type fixerSymbolsResp struct {
	Success bool              `json:"success"`
	Symbols map[string]string `json:"symbols"`
	Error   *fixerError       `json:"error,omitempty"`
}

type fixerError struct {
	Code int    `json:"code"`
	Type string `json:"type"`
	Info string `json:"info"`
}

func (e *fixerError) classify() error {
	switch e.Code {
	case 101, 102, 103:
		return fmt.Errorf("%w: %d %s", ErrInvalidKey, e.Code, e.Type)
	case 104, 106, 429:
		return fmt.Errorf("%w: %d %s", ErrRateLimited, e.Code, e.Type)
	default:
		return fmt.Errorf("%w: %d %s", ErrUnavailable, e.Code, e.Type)
	}
}

func (p *FixerAPI) Fetch(ctx context.Context, pair domain.Pair) (domain.Rate, error) {
	if p.BaseURL == "" || p.APIKey == "" {
		return domain.Rate{}, fmt.Errorf("%w: missing configuration", ErrInvalidKey)
	}
	src, tgt := pair.Source(), pair.Target()

	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return domain.Rate{}, fmt.Errorf("fixer: invalid base url: %w", err)
	}
	u.Path += fixerLatestPath
	q := u.Query()
	q.Set("access_key", p.APIKey)
	q.Set("base", p.pivot())
	q.Set("symbols", src+","+tgt)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.Rate{}, fmt.Errorf("fixer: create request: %w", err)
	}

	var body fixerLatestResp
	if err := p.client().DoJSON(ctx, req, &body); err != nil {
		return domain.Rate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !body.Success {
		if body.Error != nil {
			return domain.Rate{}, body.Error.classify()
		}
		return domain.Rate{}, fmt.Errorf("%w: unsuccessful response", ErrUnavailable)
	}

	mid, err := p.triangulate(body, src, tgt)
	if err != nil {
		return domain.Rate{}, err
	}

	fetchedAt := time.Now().UTC()
	if body.Timestamp > 0 {
		fetchedAt = time.Unix(body.Timestamp, 0).UTC()
	}
	return domain.Rate{
		Pair:      pair,
		Mid:       mid,
		FetchedAt: fetchedAt,
		Source:    "fixer",
	}, nil
}

// triangulate derives rate(src,tgt) from the pivot-quoted legs.
func (p *FixerAPI) triangulate(body fixerLatestResp, src, tgt string) (decimal.Decimal, error) {
	pivot := body.Base
	if pivot == "" {
		pivot = p.pivot()
	}
	leg := func(c string) (decimal.Decimal, error) {
		if c == pivot {
			return decimal.NewFromInt(1), nil
		}
		v, ok := body.Rates[c]
		if !ok || v == 0 {
			return decimal.Decimal{}, fmt.Errorf("%w: missing rate for %s", ErrUnavailable, c)
		}
		return decimal.NewFromFloat(v), nil
	}

	pivotToSrc, err := leg(src)
	if err != nil {
		return decimal.Decimal{}, err
	}
	pivotToTgt, err := leg(tgt)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return pivotToTgt.Div(pivotToSrc).Round(8), nil
}

func (p *FixerAPI) Symbols(ctx context.Context) (map[string]string, error) {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("fixer: invalid base url: %w", err)
	}
	u.Path += fixerSymbolsPath
	q := u.Query()
	q.Set("access_key", p.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fixer: create request: %w", err)
	}
	var body fixerSymbolsResp
	if err := p.client().DoJSON(ctx, req, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !body.Success {
		if body.Error != nil {
			return nil, body.Error.classify()
		}
		return nil, fmt.Errorf("%w: unsuccessful response", ErrUnavailable)
	}
	return body.Symbols, nil
}

func (p *FixerAPI) pivot() string {
	if p.Pivot == "" {
		return "EUR"
	}
	return p.Pivot
}

func (p *FixerAPI) client() *httpx.Client {
	if p.Client == nil {
		p.Client = &httpx.Client{HTTP: &http.Client{Timeout: 4 * time.Second}}
	}
	return p.Client
}
