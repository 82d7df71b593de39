package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinanceSource_FetchRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"symbol":"EURUSDT","price":"1.25000000"},
			{"symbol":"USDTBRL","price":"5.10000000"},
			{"symbol":"BTCUSDT","price":"65000.00"},
			{"symbol":"USDTZAR","price":"not-a-number"}
		]`))
	}))
	defer srv.Close()

	client := binance.NewClient("", "")
	client.BaseURL = srv.URL

	src := NewBinanceSource(client, []string{"USD", "EUR", "brl", "ZAR", "KES"})
	table, err := src.FetchRates(context.Background())
	require.NoError(t, err)

	assert.True(t, table["USD"].Equal(decimal.NewFromInt(1)))
	assert.True(t, table["EUR"].Equal(decimal.RequireFromString("0.8")), "got %s", table["EUR"])
	assert.True(t, table["BRL"].Equal(decimal.RequireFromString("5.1")))
	assert.NotContains(t, table, "ZAR")
	assert.NotContains(t, table, "KES")
	assert.Equal(t, "binance", src.Name())
}
