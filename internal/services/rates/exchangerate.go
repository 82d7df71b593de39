package rates

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sitepulse/internal/domain"
)

// DefaultExchangeRateURL free-tier endpoint returning USD-based rates.
const DefaultExchangeRateURL = "https://api.exchangerate-api.com/v4/latest/USD"

type exchangeRateResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// ExchangeRateSource fetches rates from an exchangerate-api compatible endpoint.
type ExchangeRateSource struct {
	client *http.Client
	url    string
}

// NewExchangeRateSource creates a source for the given endpoint.
func NewExchangeRateSource(client *http.Client, url string) *ExchangeRateSource {
	if client == nil {
		client = http.DefaultClient
	}
	if url == "" {
		url = DefaultExchangeRateURL
	}
	return &ExchangeRateSource{client: client, url: url}
}

// Name returns the source identifier.
func (s *ExchangeRateSource) Name() string {
	return "exchangerate"
}

// FetchRates requests the latest rate table.
func (s *ExchangeRateSource) FetchRates(ctx context.Context) (domain.RateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build rates request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request rates")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(ErrUnexpectedStatus, "rates endpoint answered %d", resp.StatusCode)
	}

	var body exchangeRateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "decode rates: %v", err)
	}
	if body.Rates == nil {
		return nil, errors.Wrap(ErrMalformedResponse, "response has no rates field")
	}

	return domain.RateTable(body.Rates), nil
}
