package currency

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/vadiminshakov/sitepulse/internal/clients"
	"github.com/vadiminshakov/sitepulse/internal/domain"
	"go.uber.org/zap"
)

// DetectionSource tells which signal picked the locale.
type DetectionSource string

const (
	DetectionNone        DetectionSource = "none"
	DetectionGeolocation DetectionSource = "geolocation"
	DetectionTimezone    DetectionSource = "timezone"
)

// Detection is the outcome of one locale detection attempt.
type Detection struct {
	Key     domain.LocaleKey `json:"key,omitempty"`
	Country string           `json:"country,omitempty"`
	Source  DetectionSource  `json:"source"`
}

type geoLookup interface {
	Lookup(ctx context.Context) (clients.GeoLocation, error)
}

// Detector guesses the visitor's locale from IP geolocation, falling back to the host timezone.
type Detector struct {
	l        *zap.Logger
	geo      geoLookup
	timezone func() string
}

// NewDetector creates a detector. geo may be nil to skip the network lookup;
// timezone defaults to HostTimezone.
func NewDetector(l *zap.Logger, geo geoLookup, timezone func() string) *Detector {
	if timezone == nil {
		timezone = HostTimezone
	}
	return &Detector{
		l:        l,
		geo:      geo,
		timezone: timezone,
	}
}

// Detect runs one best-effort detection. It never fails: an unknown location yields DetectionNone.
func (d *Detector) Detect(ctx context.Context) Detection {
	if d.geo != nil {
		if det, ok := d.fromGeolocation(ctx); ok {
			return det
		}
	}

	tz := d.timezone()
	if country, ok := domain.CountryForTimezone(tz); ok {
		if key, ok := domain.LocaleForCountry(country); ok {
			return Detection{Key: key, Country: country, Source: DetectionTimezone}
		}
	}

	d.l.Debug("locale not detected, keeping default", zap.String("timezone", tz))
	return Detection{Source: DetectionNone}
}

func (d *Detector) fromGeolocation(ctx context.Context) (Detection, bool) {
	loc, err := d.geo.Lookup(ctx)
	if err != nil {
		d.l.Warn("geolocation lookup failed, falling back to timezone", zap.Error(err))
		return Detection{}, false
	}

	if key, ok := domain.LocaleForCountry(loc.CountryName); ok {
		return Detection{Key: key, Country: loc.CountryName, Source: DetectionGeolocation}, true
	}

	if country, ok := domain.CountryForCode(loc.CountryCode); ok {
		key, _ := domain.LocaleForCountry(country)
		return Detection{Key: key, Country: country, Source: DetectionGeolocation}, true
	}

	d.l.Info("geolocated country is not supported",
		zap.String("country_name", loc.CountryName),
		zap.String("country_code", loc.CountryCode))
	return Detection{}, false
}

// HostTimezone returns the IANA name of the host timezone: $TZ first, then the
// /etc/localtime link target, then whatever the runtime reports.
func HostTimezone() string {
	if tz := os.Getenv("TZ"); tz != "" {
		return strings.TrimPrefix(tz, ":")
	}
	if target, err := os.Readlink("/etc/localtime"); err == nil {
		if i := strings.Index(target, "zoneinfo/"); i >= 0 {
			return target[i+len("zoneinfo/"):]
		}
	}
	return time.Local.String()
}

// FixedTimezone returns a timezone source that always reports tz.
func FixedTimezone(tz string) func() string {
	return func() string { return tz }
}
