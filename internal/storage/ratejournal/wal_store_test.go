package ratejournal

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/sitepulse/internal/domain"
)

func event(id string, ok bool) domain.RateRefreshEvent {
	e := domain.RateRefreshEvent{
		ID:        id,
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Source:    "exchangerate",
		Success:   ok,
	}
	if ok {
		e.Applied = []string{"EUR", "INR"}
	} else {
		e.Error = "rate fetch failed: timeout"
	}
	return e
}

func TestWALStore_SaveAndReplay(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.Zero(t, store.CurrentIndex())

	first, err := store.Save(event("a", true))
	require.NoError(t, err)
	second, err := store.Save(event("b", false))
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
	assert.Equal(t, second, store.CurrentIndex())

	records, err := store.EventsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first, records[0].Index)
	assert.Equal(t, event("a", true), records[0].Event)
	assert.Equal(t, event("b", false), records[1].Event)

	records, err = store.EventsAfter(first)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0].Event.ID)

	records, err = store.EventsAfter(second)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWALStore_Recent(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	records, err := store.Recent(5)
	require.NoError(t, err)
	assert.Empty(t, records)

	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := store.Save(event(id, true))
		require.NoError(t, err)
	}

	records, err = store.Recent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c", records[0].Event.ID)
	assert.Equal(t, "d", records[1].Event.ID)
	assert.Equal(t, uint64(4), records[1].Index)

	records, err = store.Recent(10)
	require.NoError(t, err)
	assert.Len(t, records, 4)

	records, err = store.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWALStore_SkipsRotatedSegments(t *testing.T) {
	store, err := NewWALStore(t.TempDir(), WithSegments(2, 2))
	require.NoError(t, err)
	defer store.Close()

	ids := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, id := range ids {
		_, err := store.Save(event(id, true))
		require.NoError(t, err)
	}
	require.Equal(t, uint64(len(ids)), store.CurrentIndex())

	records, err := store.EventsAfter(0)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Less(t, len(records), len(ids))
	assert.Greater(t, records[0].Index, uint64(1))
	last := records[len(records)-1]
	assert.Equal(t, uint64(7), last.Index)
	assert.Equal(t, "g", last.Event.ID)
	for _, r := range records {
		assert.Equal(t, ids[r.Index-1], r.Event.ID)
	}

	recent, err := store.Recent(len(ids))
	require.NoError(t, err)
	assert.Equal(t, records, recent)
}

func TestWALStore_Reopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)
	_, err = store.Save(event("a", true))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.EventsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].Event.ID)
}

func TestWALStore_RequiresID(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Save(domain.RateRefreshEvent{})
	assert.Error(t, err)
}

func TestWALStore_Nil(t *testing.T) {
	var store *WALStore

	_, err := store.Save(event("a", true))
	assert.True(t, errors.Is(err, ErrNotInitialized))
	_, err = store.EventsAfter(0)
	assert.True(t, errors.Is(err, ErrNotInitialized))
	_, err = store.Recent(1)
	assert.True(t, errors.Is(err, ErrNotInitialized))
	assert.Zero(t, store.CurrentIndex())
	assert.True(t, errors.Is(store.Close(), ErrNotInitialized))
}
