// Package visitors simulates a live feed of global site visitors.
package visitors

import (
	"math/rand"
	"time"

	"github.com/vadiminshakov/sitepulse/internal/domain"
)

const (
	minCountries = 8
	maxCountries = 25
	maxVisitors  = 50
	maxJittered  = 3
	maxDelta     = 3
)

// Random is the randomness the generator needs. *rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
}

// NewRandom returns a seeded source; seed 0 picks a time-based seed.
func NewRandom(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Generate builds a fresh snapshot: 8..25 distinct countries with 1..50 visitors each.
func Generate(rng Random, now time.Time) domain.VisitorSnapshot {
	pool := append([]string(nil), domain.VisitorCandidates...)
	count := minCountries + rng.Intn(maxCountries-minCountries+1)
	if count > len(pool) {
		count = len(pool)
	}

	entries := make([]domain.VisitorEntry, 0, count)
	for i := 0; i < count; i++ {
		j := rng.Intn(len(pool))
		country := pool[j]
		pool = append(pool[:j], pool[j+1:]...)

		entries = append(entries, domain.VisitorEntry{
			Region:   domain.RegionOf(country),
			Country:  country,
			Visitors: 1 + rng.Intn(maxVisitors),
		})
	}

	return domain.NewVisitorSnapshot(entries, now)
}

// Jitter returns a copy of s with 1..3 distinct entries nudged by -3..+3 visitors.
// Counts never drop below 1 and the entry set is unchanged.
func Jitter(rng Random, s domain.VisitorSnapshot, now time.Time) domain.VisitorSnapshot {
	out := s.Clone()
	if len(out.Entries) == 0 {
		return out
	}

	n := 1 + rng.Intn(maxJittered)
	if n > len(out.Entries) {
		n = len(out.Entries)
	}

	touched := make(map[int]struct{}, n)
	for len(touched) < n {
		idx := rng.Intn(len(out.Entries))
		if _, ok := touched[idx]; ok {
			continue
		}
		touched[idx] = struct{}{}

		v := out.Entries[idx].Visitors + rng.Intn(2*maxDelta+1) - maxDelta
		if v < 1 {
			v = 1
		}
		out.Entries[idx].Visitors = v
	}

	out.LastUpdated = now
	out.Recompute()
	return out
}
