// Package currency keeps the active locale's currency descriptor and converts USD amounts for display.
package currency

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/sitepulse/internal/domain"
	"github.com/vadiminshakov/sitepulse/internal/events"
	"go.uber.org/zap"
)

// DefaultRefreshInterval is how often live rates are re-fetched.
const DefaultRefreshInterval = 30 * time.Minute

// ErrRateFetch marks a refresh cycle whose rate request failed.
var ErrRateFetch = errors.New("rate fetch failed")

type rateSource interface {
	Name() string
	FetchRates(ctx context.Context) (domain.RateTable, error)
}

type localeDetector interface {
	Detect(ctx context.Context) Detection
}

type refreshJournal interface {
	Save(event domain.RateRefreshEvent) (uint64, error)
}

// RefreshResult reports what one refresh cycle changed.
type RefreshResult struct {
	Source  string
	Applied []string
	Missing []string
	Err     error
}

// OK reports whether the rate request itself succeeded.
func (r RefreshResult) OK() bool {
	return r.Err == nil
}

// InitResult reports the outcome of Initialize.
type InitResult struct {
	Refresh   RefreshResult
	Detection Detection
}

// Option configures a Service.
type Option func(*Service)

// WithJournal records every refresh outcome.
func WithJournal(j refreshJournal) Option {
	return func(s *Service) {
		s.journal = j
	}
}

// WithClock overrides the time source used for LastUpdated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRefreshInterval overrides DefaultRefreshInterval.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithDefaultLocale sets the locale active before detection. Unknown keys are ignored.
func WithDefaultLocale(key domain.LocaleKey) Option {
	return func(s *Service) {
		if _, ok := s.table[key]; ok {
			s.active = key
		}
	}
}

// Service owns the locale table and the active locale.
// All writes happen under mu; readers get copies.
type Service struct {
	l               *zap.Logger
	source          rateSource
	detector        localeDetector
	journal         refreshJournal
	broadcaster     *events.Broadcaster[domain.CurrencyState]
	now             func() time.Time
	refreshInterval time.Duration

	mu          sync.RWMutex
	table       map[domain.LocaleKey]domain.CurrencyDescriptor
	active      domain.LocaleKey
	ratesLoaded bool
}

// NewService seeds every descriptor from its fallback rate and activates the default locale.
// detector may be nil.
func NewService(l *zap.Logger, source rateSource, detector localeDetector, opts ...Option) *Service {
	s := &Service{
		l:               l,
		source:          source,
		detector:        detector,
		broadcaster:     events.NewBroadcaster[domain.CurrencyState](16),
		now:             time.Now,
		refreshInterval: DefaultRefreshInterval,
		table:           domain.Locales(),
		active:          domain.DefaultLocale,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize performs the startup sequence: one refresh, then detection.
// Both steps are best effort; failures leave fallback rates and the default locale in place.
func (s *Service) Initialize(ctx context.Context) InitResult {
	var res InitResult
	res.Refresh = s.RefreshRates(ctx)

	s.mu.Lock()
	s.ratesLoaded = true
	state := s.stateLocked()
	s.mu.Unlock()
	s.broadcaster.Publish(state)

	res.Detection = Detection{Source: DetectionNone}
	if s.detector != nil {
		res.Detection = s.detector.Detect(ctx)
		if res.Detection.Source != DetectionNone {
			s.SelectLocale(res.Detection.Key)
		}
	}

	s.l.Info("currency service initialized",
		zap.Bool("rates_ok", res.Refresh.OK()),
		zap.String("detection", string(res.Detection.Source)),
		zap.String("locale", s.State().Key.String()))

	return res
}

// RefreshRates fetches the rate table once and applies it to every live-rate descriptor.
// Descriptors whose code is missing from the answer keep their previous values.
func (s *Service) RefreshRates(ctx context.Context) RefreshResult {
	res := RefreshResult{Source: s.source.Name()}

	rates, err := s.source.FetchRates(ctx)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrRateFetch, err)
		s.l.Warn("failed to refresh exchange rates, keeping previous values",
			zap.String("source", res.Source), zap.Error(err))
		s.record(res)
		return res
	}

	applied := make(map[string]struct{})
	missing := make(map[string]struct{})
	now := s.now()

	s.mu.Lock()
	for key, d := range s.table {
		if !d.UseLiveRate {
			continue
		}
		raw, ok := rates[d.Code]
		if !ok || !raw.IsPositive() {
			missing[d.Code] = struct{}{}
			continue
		}
		s.table[key] = d.WithLiveRate(raw, now)
		applied[d.Code] = struct{}{}
	}
	state := s.stateLocked()
	s.mu.Unlock()

	res.Applied = sortedCodes(applied)
	res.Missing = sortedCodes(missing)

	s.l.Debug("exchange rates refreshed",
		zap.String("source", res.Source),
		zap.Strings("applied", res.Applied),
		zap.Strings("missing", res.Missing))

	s.broadcaster.Publish(state)
	s.record(res)
	return res
}

// Run refreshes rates every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	s.l.Info("starting rate refresh loop", zap.Duration("interval", s.refreshInterval))

	for {
		select {
		case <-ctx.Done():
			s.l.Info("stopping rate refresh loop")
			return ctx.Err()
		case <-ticker.C:
			s.RefreshRates(ctx)
		}
	}
}

// SelectLocale switches the active locale. Unknown keys leave state unchanged and return false.
func (s *Service) SelectLocale(key domain.LocaleKey) bool {
	s.mu.Lock()
	if _, ok := s.table[key]; !ok {
		s.mu.Unlock()
		s.l.Debug("ignoring unknown locale", zap.String("key", key.String()))
		return false
	}
	s.active = key
	state := s.stateLocked()
	s.mu.Unlock()

	s.broadcaster.Publish(state)
	return true
}

// SelectCountry switches the active locale by display country name.
func (s *Service) SelectCountry(name string) bool {
	key, ok := domain.LocaleForCountry(name)
	if !ok {
		s.l.Debug("ignoring unsupported country", zap.String("country", name))
		return false
	}
	return s.SelectLocale(key)
}

// Convert renders a USD amount in the active currency.
func (s *Service) Convert(usd decimal.Decimal, opts ...ConvertOption) string {
	return Format(s.activeDescriptor(), usd, opts...)
}

// ConvertString renders a USD amount or "min-max" range given as text.
func (s *Service) ConvertString(usd string, opts ...ConvertOption) string {
	return FormatString(s.activeDescriptor(), usd, opts...)
}

// State returns the active locale, its descriptor and whether startup completed.
func (s *Service) State() domain.CurrencyState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// RateStatus reports how fresh the active descriptor's rate is.
func (s *Service) RateStatus() domain.RateStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.table[s.active]
	return domain.RateStatus{
		IsLive:      d.IsLive,
		LastUpdated: d.LastUpdated,
		RatesLoaded: s.ratesLoaded,
	}
}

// SupportedCountries lists selectable countries in display order.
func (s *Service) SupportedCountries() []string {
	return domain.SupportedCountries()
}

// Descriptors returns a copy of the whole locale table.
func (s *Service) Descriptors() map[domain.LocaleKey]domain.CurrencyDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.LocaleKey]domain.CurrencyDescriptor, len(s.table))
	for k, d := range s.table {
		out[k] = d
	}
	return out
}

// Subscribe returns a channel receiving the state after every change.
func (s *Service) Subscribe() chan domain.CurrencyState {
	return s.broadcaster.Subscribe()
}

// Unsubscribe stops delivery to ch and closes it.
func (s *Service) Unsubscribe(ch chan domain.CurrencyState) {
	s.broadcaster.Unsubscribe(ch)
}

func (s *Service) activeDescriptor() domain.CurrencyDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table[s.active]
}

func (s *Service) stateLocked() domain.CurrencyState {
	country, _ := domain.CountryForLocale(s.active)
	return domain.CurrencyState{
		Key:         s.active,
		Country:     country,
		Descriptor:  s.table[s.active],
		RatesLoaded: s.ratesLoaded,
	}
}

func (s *Service) record(res RefreshResult) {
	if s.journal == nil {
		return
	}

	event := domain.RateRefreshEvent{
		ID:        uuid.NewString(),
		Timestamp: s.now().UTC(),
		Source:    res.Source,
		Success:   res.OK(),
		Applied:   res.Applied,
		Missing:   res.Missing,
	}
	if res.Err != nil {
		event.Error = res.Err.Error()
	}

	if _, err := s.journal.Save(event); err != nil {
		s.l.Warn("failed to journal rate refresh", zap.Error(err))
	}
}

func sortedCodes(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for code := range set {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
