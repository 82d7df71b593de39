// Package rates fetches USD-based exchange-rate tables from external sources.
package rates

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sitepulse/internal/domain"
)

var (
	// ErrUnexpectedStatus is returned when the endpoint answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected response status")
	// ErrMalformedResponse is returned when the body does not contain a rate mapping.
	ErrMalformedResponse = errors.New("malformed rates response")
)

// Source provides USD-based rates keyed by currency code.
type Source interface {
	Name() string
	FetchRates(ctx context.Context) (domain.RateTable, error)
}
