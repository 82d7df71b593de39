// Package ratejournal keeps an append-only log of exchange-rate refresh outcomes.
package ratejournal

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"github.com/vadiminshakov/sitepulse/internal/domain"
	"go.uber.org/zap"
)

const (
	// DefaultDir is used when no journal directory is configured.
	DefaultDir = "./wal/rates"

	segmentLimit = 1000
	maxSegments  = 50
	keyPrefix    = "rate_refresh_"
)

// ErrNotInitialized is returned by methods called on a nil or closed store.
var ErrNotInitialized = errors.New("rate journal is not initialized")

// WALStore persists refresh events in a gowal write-ahead log.
// Old segments are dropped once MaxSegments is reached, so reads skip indexes that are gone.
type WALStore struct {
	wal *gowal.Wal
	l   *zap.Logger
	mu  sync.RWMutex
}

type storeOptions struct {
	logger       *zap.Logger
	segmentLimit int
	maxSegments  int
}

// Option configures a WALStore.
type Option func(*storeOptions)

// WithLogger sets the logger used for unreadable records.
func WithLogger(l *zap.Logger) Option {
	return func(o *storeOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSegments overrides how many events a segment holds and how many segments are kept.
func WithSegments(limit, keep int) Option {
	return func(o *storeOptions) {
		if limit > 0 {
			o.segmentLimit = limit
		}
		if keep > 0 {
			o.maxSegments = keep
		}
	}
}

// NewWALStore opens (or creates) the journal under dir.
func NewWALStore(dir string, opts ...Option) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	o := storeOptions{
		logger:       zap.NewNop(),
		segmentLimit: segmentLimit,
		maxSegments:  maxSegments,
	}
	for _, opt := range opts {
		opt(&o)
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "rates_",
		SegmentThreshold: o.segmentLimit,
		MaxSegments:      o.maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init rate journal WAL")
	}

	return &WALStore{wal: wal, l: o.logger}, nil
}

// Save appends the event and returns its index.
func (s *WALStore) Save(event domain.RateRefreshEvent) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, ErrNotInitialized
	}
	if event.ID == "" {
		return 0, errors.New("rate refresh event id is required")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return 0, errors.Wrap(err, "marshal rate refresh event")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(index, keyPrefix+event.ID, payload); err != nil {
		return 0, errors.Wrapf(err, "write rate refresh event %d", index)
	}
	return index, nil
}

// EventsAfter returns every event written after index, oldest first.
func (s *WALStore) EventsAfter(index uint64) ([]domain.RateRefreshRecord, error) {
	if s == nil || s.wal == nil {
		return nil, ErrNotInitialized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}
	return s.readRange(index+1, current)
}

// Recent returns up to limit of the newest events, oldest first.
func (s *WALStore) Recent(limit int) ([]domain.RateRefreshRecord, error) {
	if s == nil || s.wal == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	from := uint64(1)
	if current > uint64(limit) {
		from = current - uint64(limit) + 1
	}
	return s.readRange(from, current)
}

// readRange decodes the events stored at indexes [from, to]. Callers hold mu.
func (s *WALStore) readRange(from, to uint64) ([]domain.RateRefreshRecord, error) {
	if from == 0 {
		from = 1
	}
	if to < from {
		return nil, nil
	}

	records := make([]domain.RateRefreshRecord, 0, to-from+1)
	for idx := from; idx <= to; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil {
			s.l.Warn("skipping unreadable rate refresh event", zap.Uint64("index", idx), zap.Error(err))
			continue
		}
		// rotated-away indexes come back with an empty key
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		var event domain.RateRefreshEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, errors.Wrapf(err, "decode rate refresh event %d", idx)
		}
		records = append(records, domain.RateRefreshRecord{Index: idx, Event: event})
	}
	return records, nil
}

// CurrentIndex returns the index of the latest event, 0 when empty.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close flushes and closes the log.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return ErrNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.wal.Close()
	s.wal = nil
	return err
}
