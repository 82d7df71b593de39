package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultLocale is active until detection or an explicit selection changes it.
const DefaultLocale LocaleKey = "US"

// IntegerDenominated lists currency codes rendered in whole units with grouped digits.
// These take precedence over the tier rounding policy.
var IntegerDenominated = map[string]struct{}{
	"JPY": {},
	"KRW": {},
	"NGN": {},
	"KES": {},
}

func developed(code, symbol, fallback string) CurrencyDescriptor {
	return CurrencyDescriptor{
		Code:         code,
		Symbol:       symbol,
		FallbackRate: decimal.RequireFromString(fallback),
		Placement:    PlacementBefore,
		Tier:         TierDeveloped,
		UseLiveRate:  true,
	}
}

func adjusted(code, symbol, fallback string, tier MarketTier, ppp string) CurrencyDescriptor {
	d := developed(code, symbol, fallback)
	d.Tier = tier
	d.PPPAdjustment = decimal.NewNullDecimal(decimal.RequireFromString(ppp))
	return d
}

// Locales returns a fresh copy of the static locale table, runtime fields seeded from fallback rates.
func Locales() map[LocaleKey]CurrencyDescriptor {
	table := map[LocaleKey]CurrencyDescriptor{
		"US": developed("USD", "$", "1.0"),
		"CA": developed("CAD", "C$", "1.35"),
		"GB": developed("GBP", "£", "0.79"),
		"EU": developed("EUR", "€", "0.92"),
		"DE": developed("EUR", "€", "0.92"),
		"FR": developed("EUR", "€", "0.92"),
		"ES": developed("EUR", "€", "0.92"),
		"IT": developed("EUR", "€", "0.92"),
		"NL": developed("EUR", "€", "0.92"),
		"JP": developed("JPY", "¥", "149.50"),
		"AU": developed("AUD", "A$", "1.52"),
		"NZ": developed("NZD", "NZ$", "1.64"),
		"SG": developed("SGD", "S$", "1.35"),
		"HK": developed("HKD", "HK$", "7.83"),

		"IN": adjusted("INR", "₹", "83.25", TierEmerging, "0.3"),
		"CN": adjusted("CNY", "¥", "7.24", TierEmerging, "0.6"),
		"KR": adjusted("KRW", "₩", "1327.50", TierEmerging, "0.6"),
		"BR": adjusted("BRL", "R$", "5.02", TierEmerging, "0.65"),
		"MX": adjusted("MXN", "$", "17.15", TierEmerging, "0.7"),
		"ZA": adjusted("ZAR", "R", "18.75", TierEmerging, "0.65"),

		"NG": adjusted("NGN", "₦", "825.50", TierDeveloping, "0.2"),
		"KE": adjusted("KES", "KSh", "147.25", TierDeveloping, "0.25"),
	}
	for key, d := range table {
		table[key] = d.Seeded()
	}
	return table
}

// countries keeps the display order of selectable countries.
var countries = []struct {
	Name string
	Code LocaleKey
}{
	{"United States", "US"},
	{"Canada", "CA"},
	{"United Kingdom", "GB"},
	{"Germany", "DE"},
	{"France", "FR"},
	{"Spain", "ES"},
	{"Italy", "IT"},
	{"Netherlands", "NL"},
	{"Japan", "JP"},
	{"Australia", "AU"},
	{"New Zealand", "NZ"},
	{"Singapore", "SG"},
	{"Hong Kong", "HK"},
	{"India", "IN"},
	{"China", "CN"},
	{"South Korea", "KR"},
	{"Brazil", "BR"},
	{"Mexico", "MX"},
	{"South Africa", "ZA"},
	{"Nigeria", "NG"},
	{"Kenya", "KE"},
}

// SupportedCountries returns selectable country names in display order.
func SupportedCountries() []string {
	names := make([]string, 0, len(countries))
	for _, c := range countries {
		names = append(names, c.Name)
	}
	return names
}

// LocaleForCountry maps a display country name to its locale key.
func LocaleForCountry(name string) (LocaleKey, bool) {
	for _, c := range countries {
		if c.Name == name {
			return c.Code, true
		}
	}
	return "", false
}

// CountryForLocale maps a locale key back to its display country name.
// Keys without a country (EU) return false.
func CountryForLocale(key LocaleKey) (string, bool) {
	for _, c := range countries {
		if c.Code == key {
			return c.Name, true
		}
	}
	return "", false
}

// CountryForCode maps an ISO 3166 alpha-2 code reported by a geolocation lookup.
func CountryForCode(code string) (string, bool) {
	return CountryForLocale(LocaleKey(code))
}

// timezoneCountries guesses a country from an IANA timezone identifier.
var timezoneCountries = map[string]string{
	"America/New_York":    "United States",
	"America/Los_Angeles": "United States",
	"America/Chicago":     "United States",
	"America/Denver":      "United States",
	"America/Toronto":     "Canada",
	"America/Vancouver":   "Canada",
	"Europe/London":       "United Kingdom",
	"Europe/Berlin":       "Germany",
	"Europe/Paris":        "France",
	"Europe/Madrid":       "Spain",
	"Europe/Rome":         "Italy",
	"Europe/Amsterdam":    "Netherlands",
	"Asia/Tokyo":          "Japan",
	"Australia/Sydney":    "Australia",
	"Australia/Melbourne": "Australia",
	"Pacific/Auckland":    "New Zealand",
	"Asia/Singapore":      "Singapore",
	"Asia/Hong_Kong":      "Hong Kong",
	"Asia/Kolkata":        "India",
	"Asia/Shanghai":       "China",
	"Asia/Seoul":          "South Korea",
	"America/Sao_Paulo":   "Brazil",
	"America/Mexico_City": "Mexico",
	"Africa/Johannesburg": "South Africa",
	"Africa/Lagos":        "Nigeria",
	"Africa/Nairobi":      "Kenya",
}

// CountryForTimezone returns the guessed country for an IANA timezone.
func CountryForTimezone(tz string) (string, bool) {
	name, ok := timezoneCountries[tz]
	return name, ok
}

// LiveRateCodes returns the distinct currency codes that take live rates, sorted.
func LiveRateCodes() []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, d := range Locales() {
		if !d.UseLiveRate {
			continue
		}
		if _, ok := seen[d.Code]; ok {
			continue
		}
		seen[d.Code] = struct{}{}
		codes = append(codes, d.Code)
	}
	sort.Strings(codes)
	return codes
}
