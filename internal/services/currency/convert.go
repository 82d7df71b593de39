package currency

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sitepulse/internal/domain"
)

const defaultDecimals = 2

var (
	half     = decimal.NewFromFloat(0.5)
	one      = decimal.NewFromInt(1)
	thousand = decimal.NewFromInt(1000)
)

type convertOptions struct {
	showSymbol bool
	showCode   bool
	decimals   int
	asRange    bool
}

// ConvertOption tweaks how a converted amount is rendered.
type ConvertOption func(*convertOptions)

// WithoutSymbol omits the currency symbol.
func WithoutSymbol() ConvertOption {
	return func(o *convertOptions) {
		o.showSymbol = false
	}
}

// WithCode appends " <CODE>" to the amount.
func WithCode() ConvertOption {
	return func(o *convertOptions) {
		o.showCode = true
	}
}

// WithDecimals sets the number of decimal places for fixed-point currencies.
func WithDecimals(n int) ConvertOption {
	return func(o *convertOptions) {
		if n < 0 {
			n = 0
		}
		o.decimals = n
	}
}

// AsRange treats a "min-max" string as a range and converts both bounds.
func AsRange() ConvertOption {
	return func(o *convertOptions) {
		o.asRange = true
	}
}

func newConvertOptions(opts []ConvertOption) convertOptions {
	o := convertOptions{showSymbol: true, decimals: defaultDecimals}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Format converts a USD amount with the descriptor's rate and renders it.
// It performs no I/O.
func Format(d domain.CurrencyDescriptor, usd decimal.Decimal, opts ...ConvertOption) string {
	return formatAmount(d, usd.Mul(d.Rate), newConvertOptions(opts))
}

// FormatString is Format for amounts coming from copy text, e.g. "$1,200" or "300-1200".
// Anything except digits and dots is ignored; unparseable input converts as zero.
func FormatString(d domain.CurrencyDescriptor, usd string, opts ...ConvertOption) string {
	o := newConvertOptions(opts)

	if o.asRange && strings.Contains(usd, "-") {
		bounds := strings.SplitN(usd, "-", 3)
		low := formatAmount(d, ParseAmount(bounds[0]).Mul(d.Rate), o)
		high := formatAmount(d, ParseAmount(bounds[1]).Mul(d.Rate), o)
		return low + "-" + high
	}

	return formatAmount(d, ParseAmount(usd).Mul(d.Rate), o)
}

// ParseAmount keeps digits and dots, then reads the longest numeric prefix.
func ParseAmount(s string) decimal.Decimal {
	var b strings.Builder
	seenDot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.':
			if seenDot {
				// a second dot ends the number, like parseFloat("1.2.3")
				return parseDigits(b.String())
			}
			seenDot = true
			b.WriteRune(r)
		}
	}
	return parseDigits(b.String())
}

func parseDigits(s string) decimal.Decimal {
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return decimal.Zero
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

func formatAmount(d domain.CurrencyDescriptor, amount decimal.Decimal, o convertOptions) string {
	var formatted string
	switch {
	case d.IsIntegerDenominated():
		formatted = humanize.BigComma(roundHalfUp(amount, one).BigInt())
	case d.Tier.RoundsToThousands():
		formatted = humanize.BigComma(roundHalfUp(amount, thousand).BigInt())
	default:
		formatted = amount.StringFixed(int32(o.decimals))
	}

	result := formatted
	if o.showSymbol {
		if d.Placement == domain.PlacementAfter {
			result = formatted + d.Symbol
		} else {
			result = d.Symbol + formatted
		}
	}

	if o.showCode {
		result += " " + d.Code
	}

	return result
}

// roundHalfUp rounds to the nearest multiple of unit, halves towards +Inf.
func roundHalfUp(amount, unit decimal.Decimal) decimal.Decimal {
	return amount.Div(unit).Add(half).Floor().Mul(unit)
}
