package clients

import (
	"net/http"
	"time"

	"github.com/adshao/go-binance/v2"
)

// NewPublicBinanceClient creates a client without API keys for public market data only.
func NewPublicBinanceClient(timeout time.Duration) *binance.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := binance.NewClient("", "")
	client.HTTPClient = &http.Client{Timeout: timeout}
	return client
}
