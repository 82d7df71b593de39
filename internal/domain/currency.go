package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LocaleKey identifies one entry of the locale table (mostly ISO country codes, plus "EU").
type LocaleKey string

// String returns the string representation.
func (k LocaleKey) String() string {
	return string(k)
}

// CurrencyDescriptor describes how amounts are converted and rendered for one locale.
// The first block is static configuration, the second is refreshed at runtime.
type CurrencyDescriptor struct {
	Code          string              `json:"code"`
	Symbol        string              `json:"symbol"`
	FallbackRate  decimal.Decimal     `json:"fallback_rate"`
	Placement     SymbolPlacement     `json:"placement"`
	Tier          MarketTier          `json:"market_tier"`
	UseLiveRate   bool                `json:"use_live_rate"`
	PPPAdjustment decimal.NullDecimal `json:"ppp_adjustment"`

	Rate        decimal.Decimal `json:"rate"`
	LastUpdated *time.Time      `json:"last_updated,omitempty"`
	IsLive      bool            `json:"is_live"`
}

// Seeded returns a copy with the runtime fields reset to the fallback state.
func (d CurrencyDescriptor) Seeded() CurrencyDescriptor {
	d.Rate = d.FallbackRate
	d.LastUpdated = nil
	d.IsLive = false
	return d
}

// LiveRate applies the PPP adjustment, if any, to a raw USD-based market rate.
func (d CurrencyDescriptor) LiveRate(raw decimal.Decimal) decimal.Decimal {
	if d.PPPAdjustment.Valid {
		return raw.Mul(d.PPPAdjustment.Decimal)
	}
	return raw
}

// WithLiveRate returns a copy carrying a freshly fetched rate.
// rate, LastUpdated and IsLive always change together.
func (d CurrencyDescriptor) WithLiveRate(raw decimal.Decimal, at time.Time) CurrencyDescriptor {
	d.Rate = d.LiveRate(raw)
	d.LastUpdated = &at
	d.IsLive = true
	return d
}

// IsIntegerDenominated reports whether the descriptor's currency is rendered in whole units.
func (d CurrencyDescriptor) IsIntegerDenominated() bool {
	_, ok := IntegerDenominated[d.Code]
	return ok
}

// CurrencyState is the immutable view of the active locale handed to subscribers.
type CurrencyState struct {
	Key         LocaleKey          `json:"key"`
	Country     string             `json:"country,omitempty"`
	Descriptor  CurrencyDescriptor `json:"currency"`
	RatesLoaded bool               `json:"rates_loaded"`
}

// RateStatus summarizes freshness of the active descriptor.
type RateStatus struct {
	IsLive      bool       `json:"is_live"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	RatesLoaded bool       `json:"rates_loaded"`
}

// RateTable USD-based rates keyed by currency code.
type RateTable map[string]decimal.Decimal

// RateRefreshEvent records the outcome of one refresh cycle.
type RateRefreshEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	Source    string    `json:"source"`
	Success   bool      `json:"success"`
	Applied   []string  `json:"applied,omitempty"`
	Missing   []string  `json:"missing,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// RateRefreshRecord bundles an event with its journal index.
type RateRefreshRecord struct {
	Index uint64           `json:"index"`
	Event RateRefreshEvent `json:"event"`
}
