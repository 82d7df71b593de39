package rates

import (
	"context"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sitepulse/internal/domain"
)

const stableQuote = "USDT"

// BinanceSource derives USD-based fiat rates from Binance public ticker prices.
// USDT is treated as USD. Codes without a USDT market are left out of the table.
type BinanceSource struct {
	client *binance.Client
	codes  []string
}

// NewBinanceSource creates a source resolving the given currency codes.
func NewBinanceSource(client *binance.Client, codes []string) *BinanceSource {
	return &BinanceSource{client: client, codes: codes}
}

// Name returns the source identifier.
func (s *BinanceSource) Name() string {
	return "binance"
}

// FetchRates lists all ticker prices and inverts XUSDT markets or reads USDTX markets directly.
func (s *BinanceSource) FetchRates(ctx context.Context) (domain.RateTable, error) {
	prices, err := s.client.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list binance prices")
	}
	if len(prices) == 0 {
		return nil, errors.Wrap(ErrMalformedResponse, "binance API returned empty prices")
	}

	bySymbol := make(map[string]decimal.Decimal, len(prices))
	for _, p := range prices {
		price, err := decimal.NewFromString(p.Price)
		if err != nil || !price.IsPositive() {
			continue
		}
		bySymbol[p.Symbol] = price
	}

	table := make(domain.RateTable, len(s.codes))
	for _, code := range s.codes {
		code = strings.ToUpper(code)
		if code == "USD" {
			table[code] = decimal.NewFromInt(1)
			continue
		}
		if price, ok := bySymbol[code+stableQuote]; ok {
			table[code] = decimal.NewFromInt(1).DivRound(price, 8)
			continue
		}
		if price, ok := bySymbol[stableQuote+code]; ok {
			table[code] = price
		}
	}

	return table, nil
}
