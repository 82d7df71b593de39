package visitors

import (
	"context"
	"sync"
	"time"

	"github.com/vadiminshakov/sitepulse/internal/domain"
	"github.com/vadiminshakov/sitepulse/internal/events"
	"go.uber.org/zap"
)

const (
	DefaultRegenerateInterval = 30 * time.Second
	DefaultJitterInterval     = 5 * time.Second
	DefaultTopEntries         = 5
	historySize               = 120
)

// Option configures a Feed.
type Option func(*Feed)

// WithClock overrides the time source stamped on snapshots.
func WithClock(now func() time.Time) Option {
	return func(f *Feed) {
		f.now = now
	}
}

// WithIntervals overrides the regeneration and jitter periods. Non-positive values keep the defaults.
func WithIntervals(regenerate, jitter time.Duration) Option {
	return func(f *Feed) {
		if regenerate > 0 {
			f.regenerateEvery = regenerate
		}
		if jitter > 0 {
			f.jitterEvery = jitter
		}
	}
}

// Feed owns the current visitor snapshot and the random source driving it.
type Feed struct {
	l               *zap.Logger
	broadcaster     *events.Broadcaster[domain.VisitorSnapshot]
	now             func() time.Time
	regenerateEvery time.Duration
	jitterEvery     time.Duration

	mu       sync.RWMutex
	rng      Random
	snapshot domain.VisitorSnapshot
	live     bool
	history  []float64
}

// NewFeed creates a live feed with an initial snapshot already generated.
func NewFeed(l *zap.Logger, rng Random, opts ...Option) *Feed {
	f := &Feed{
		l:               l,
		broadcaster:     events.NewBroadcaster[domain.VisitorSnapshot](16),
		now:             time.Now,
		regenerateEvery: DefaultRegenerateInterval,
		jitterEvery:     DefaultJitterInterval,
		rng:             rng,
		live:            true,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.snapshot = Generate(f.rng, f.now())
	f.remember(f.snapshot)
	return f
}

// Run drives regeneration and jitter until ctx is cancelled. Ticks while paused do nothing.
func (f *Feed) Run(ctx context.Context) error {
	regenerate := time.NewTicker(f.regenerateEvery)
	defer regenerate.Stop()
	jitter := time.NewTicker(f.jitterEvery)
	defer jitter.Stop()

	f.l.Info("starting visitor feed",
		zap.Duration("regenerate_interval", f.regenerateEvery),
		zap.Duration("jitter_interval", f.jitterEvery))

	for {
		select {
		case <-ctx.Done():
			f.l.Info("stopping visitor feed")
			return ctx.Err()
		case <-regenerate.C:
			f.onRegenerateTick()
		case <-jitter.C:
			f.onJitterTick()
		}
	}
}

func (f *Feed) onRegenerateTick() bool {
	f.mu.Lock()
	if !f.live {
		f.mu.Unlock()
		return false
	}
	snapshot := f.replace(Generate(f.rng, f.now()))
	f.mu.Unlock()

	f.broadcaster.Publish(snapshot)
	return true
}

func (f *Feed) onJitterTick() bool {
	f.mu.Lock()
	if !f.live {
		f.mu.Unlock()
		return false
	}
	snapshot := f.replace(Jitter(f.rng, f.snapshot, f.now()))
	f.mu.Unlock()

	f.broadcaster.Publish(snapshot)
	return true
}

// replace installs s and returns a copy for publishing. Caller holds mu.
func (f *Feed) replace(s domain.VisitorSnapshot) domain.VisitorSnapshot {
	f.snapshot = s
	f.remember(s)
	return s.Clone()
}

func (f *Feed) remember(s domain.VisitorSnapshot) {
	f.history = append(f.history, float64(s.TotalVisitors))
	if len(f.history) > historySize {
		f.history = f.history[len(f.history)-historySize:]
	}
}

// ToggleLive flips live mode and returns the new value.
func (f *Feed) ToggleLive() bool {
	f.mu.Lock()
	f.live = !f.live
	live := f.live
	f.mu.Unlock()

	f.l.Info("visitor feed toggled", zap.Bool("live", live))
	return live
}

// IsLive reports whether scheduled ticks update the snapshot.
func (f *Feed) IsLive() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.live
}

// Refresh regenerates the snapshot now, even when paused.
func (f *Feed) Refresh() domain.VisitorSnapshot {
	f.mu.Lock()
	snapshot := f.replace(Generate(f.rng, f.now()))
	f.mu.Unlock()

	f.broadcaster.Publish(snapshot.Clone())
	return snapshot
}

// Snapshot returns a copy of the current snapshot.
func (f *Feed) Snapshot() domain.VisitorSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshot.Clone()
}

// TopEntries returns the busiest countries. limit <= 0 means DefaultTopEntries.
func (f *Feed) TopEntries(limit int) []domain.VisitorEntry {
	if limit <= 0 {
		limit = DefaultTopEntries
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if limit > len(f.snapshot.Entries) {
		limit = len(f.snapshot.Entries)
	}
	return append([]domain.VisitorEntry(nil), f.snapshot.Entries[:limit]...)
}

// RegionalBreakdown returns regional totals, busiest first.
func (f *Feed) RegionalBreakdown() []domain.RegionTotal {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshot.Breakdown()
}

// Subscribe returns a channel receiving every new snapshot.
func (f *Feed) Subscribe() chan domain.VisitorSnapshot {
	return f.broadcaster.Subscribe()
}

// Unsubscribe stops delivery to ch and closes it.
func (f *Feed) Unsubscribe(ch chan domain.VisitorSnapshot) {
	f.broadcaster.Unsubscribe(ch)
}
