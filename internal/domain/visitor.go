package domain

import (
	"sort"
	"time"
)

// OtherRegion groups countries missing from the region table.
const OtherRegion = "Other"

// VisitorEntry simulated visitor count for one country.
type VisitorEntry struct {
	Region   string `json:"region"`
	Country  string `json:"country"`
	Visitors int    `json:"visitors"`
}

// VisitorSnapshot one simulated observation of global traffic.
type VisitorSnapshot struct {
	Entries        []VisitorEntry `json:"active_countries"`
	RegionalTotals map[string]int `json:"regional_stats"`
	TotalVisitors  int            `json:"total_visitors"`
	TotalCountries int            `json:"total_countries"`
	LastUpdated    time.Time      `json:"last_updated"`
}

// RegionTotal is one row of a regional breakdown.
type RegionTotal struct {
	Region   string `json:"region"`
	Visitors int    `json:"visitors"`
}

// NewVisitorSnapshot builds a consistent snapshot from entries: totals are derived and
// entries are sorted by visitors descending, keeping the given order for ties.
func NewVisitorSnapshot(entries []VisitorEntry, at time.Time) VisitorSnapshot {
	s := VisitorSnapshot{
		Entries:     entries,
		LastUpdated: at,
	}
	s.Recompute()
	return s
}

// Recompute re-derives totals and ordering from Entries.
func (s *VisitorSnapshot) Recompute() {
	sort.SliceStable(s.Entries, func(i, j int) bool {
		return s.Entries[i].Visitors > s.Entries[j].Visitors
	})

	s.RegionalTotals = make(map[string]int)
	s.TotalVisitors = 0
	for _, e := range s.Entries {
		s.RegionalTotals[e.Region] += e.Visitors
		s.TotalVisitors += e.Visitors
	}
	s.TotalCountries = len(s.Entries)
}

// Clone returns a deep copy safe to hand to readers.
func (s VisitorSnapshot) Clone() VisitorSnapshot {
	out := s
	out.Entries = append([]VisitorEntry(nil), s.Entries...)
	out.RegionalTotals = make(map[string]int, len(s.RegionalTotals))
	for k, v := range s.RegionalTotals {
		out.RegionalTotals[k] = v
	}
	return out
}

// Breakdown returns regional totals sorted by visitors descending, then by region name.
func (s VisitorSnapshot) Breakdown() []RegionTotal {
	out := make([]RegionTotal, 0, len(s.RegionalTotals))
	for region, visitors := range s.RegionalTotals {
		out = append(out, RegionTotal{Region: region, Visitors: visitors})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Visitors != out[j].Visitors {
			return out[i].Visitors > out[j].Visitors
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// VisitorCandidates is the pool of countries the simulated feed draws from.
var VisitorCandidates = []string{
	"United States", "Canada", "United Kingdom", "Germany", "France",
	"Spain", "Italy", "Netherlands", "Japan", "Australia", "New Zealand",
	"Singapore", "Hong Kong", "India", "China", "South Korea", "Brazil",
	"Mexico", "South Africa", "Nigeria", "Kenya", "Sweden", "Norway",
	"Denmark", "Finland", "Switzerland", "Austria", "Belgium", "Portugal",
	"Ireland", "Israel", "UAE", "Thailand", "Malaysia", "Philippines",
	"Indonesia", "Vietnam", "Ghana", "Egypt", "Morocco", "Tanzania",
}

var regionCountries = map[string][]string{
	"North America": {"United States", "Canada", "Mexico"},
	"Europe": {"United Kingdom", "Germany", "France", "Spain", "Italy", "Netherlands", "Sweden",
		"Norway", "Denmark", "Finland", "Switzerland", "Austria", "Belgium", "Portugal", "Ireland"},
	"Asia Pacific": {"Japan", "Australia", "New Zealand", "Singapore", "Hong Kong", "India", "China",
		"South Korea", "Thailand", "Malaysia", "Philippines", "Indonesia", "Vietnam"},
	"Middle East & Africa": {"South Africa", "Nigeria", "Kenya", "Israel", "UAE", "Ghana", "Egypt",
		"Morocco", "Tanzania"},
	"South America": {"Brazil"},
}

var countryRegion = func() map[string]string {
	m := make(map[string]string)
	for region, list := range regionCountries {
		for _, country := range list {
			m[country] = region
		}
	}
	return m
}()

// RegionOf returns the region of a country, OtherRegion when unmapped.
func RegionOf(country string) string {
	if region, ok := countryRegion[country]; ok {
		return region
	}
	return OtherRegion
}
