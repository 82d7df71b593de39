// Package domain defines core data structures shared by the currency and visitor services.
package domain

// MarketTier coarse market classification driving the rounding policy of a currency.
type MarketTier string

const (
	// TierDeveloped markets show exact fixed-point amounts.
	TierDeveloped MarketTier = "developed"
	// TierEmerging markets show amounts rounded to thousands.
	TierEmerging MarketTier = "emerging"
	// TierDeveloping markets show amounts rounded to thousands.
	TierDeveloping MarketTier = "developing"
)

// String returns the string representation.
func (m MarketTier) String() string {
	return string(m)
}

// IsValid checks if the MarketTier value is valid.
func (m MarketTier) IsValid() bool {
	return m == TierDeveloped || m == TierEmerging || m == TierDeveloping
}

// RoundsToThousands reports whether amounts in this tier are rounded to the nearest 1000.
func (m MarketTier) RoundsToThousands() bool {
	return m == TierEmerging || m == TierDeveloping
}

// SymbolPlacement position of the currency symbol relative to the amount.
type SymbolPlacement string

const (
	// PlacementBefore renders "$100".
	PlacementBefore SymbolPlacement = "before"
	// PlacementAfter renders "100$".
	PlacementAfter SymbolPlacement = "after"
)

// String returns the string representation.
func (p SymbolPlacement) String() string {
	return string(p)
}

// IsValid checks if the SymbolPlacement value is valid.
func (p SymbolPlacement) IsValid() bool {
	return p == PlacementBefore || p == PlacementAfter
}
