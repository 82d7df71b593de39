package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRatesServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExchangeRateSource_FetchRates(t *testing.T) {
	t.Run("parses rate mapping", func(t *testing.T) {
		srv := newRatesServer(t, http.StatusOK, `{"base":"USD","rates":{"EUR":0.92,"INR":83.25,"USD":1}}`)
		src := NewExchangeRateSource(srv.Client(), srv.URL)

		table, err := src.FetchRates(context.Background())
		require.NoError(t, err)
		require.Len(t, table, 3)
		assert.True(t, table["EUR"].Equal(decimal.RequireFromString("0.92")))
		assert.True(t, table["INR"].Equal(decimal.RequireFromString("83.25")))
		assert.Equal(t, "exchangerate", src.Name())
	})

	t.Run("non-2xx status", func(t *testing.T) {
		srv := newRatesServer(t, http.StatusTooManyRequests, `{"error":"quota"}`)
		src := NewExchangeRateSource(srv.Client(), srv.URL)

		_, err := src.FetchRates(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	})

	t.Run("missing rates field", func(t *testing.T) {
		srv := newRatesServer(t, http.StatusOK, `{"base":"USD","result":"error"}`)
		src := NewExchangeRateSource(srv.Client(), srv.URL)

		_, err := src.FetchRates(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedResponse))
	})

	t.Run("invalid json", func(t *testing.T) {
		srv := newRatesServer(t, http.StatusOK, `<html>oops</html>`)
		src := NewExchangeRateSource(srv.Client(), srv.URL)

		_, err := src.FetchRates(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedResponse))
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		srv := newRatesServer(t, http.StatusOK, `{}`)
		url := srv.URL
		srv.Close()

		_, err := NewExchangeRateSource(nil, url).FetchRates(context.Background())
		assert.Error(t, err)
	})
}
