/*
Package window counts unique and duplicate records per system and time window and
flags windows where duplicates are common enough to suggest the data was
transmitted or loaded more than once.

Counts are kept at two levels: (system, window) and (system, window, record type).
*/
package window

import (
	"iter"
	"maps"
	"math"
	"slices"
	"time"
)

// DefaultGranularity is the width of a window unless configured otherwise.
const DefaultGranularity = time.Minute

// Key identifies a window for one system.
type Key struct {
	System string
	// Minute is the start of the window, truncated to the aggregator granularity.
	Minute time.Time
}

// KindKey identifies the records of one type within a window.
type KindKey struct {
	Key
	Kind int
}

// Stats holds the counts for a window.
type Stats struct {
	Unique     int64
	Duplicates int64
}

func (s Stats) Total() int64 {
	return s.Unique + s.Duplicates
}

// Ratio is duplicates divided by unique records.
// A window holding only duplicates gives +Inf, an empty window NaN.
func (s Stats) Ratio() float64 {
	if s.Unique == 0 {
		if s.Duplicates == 0 {
			return math.NaN()
		}
		return math.Inf(1)
	}
	return float64(s.Duplicates) / float64(s.Unique)
}

// Percent is duplicates as a percentage of unique records, so may exceed 100.
func (s Stats) Percent() float64 {
	return s.Ratio() * 100
}

// Aggregator counts records into windows. Buckets are created on first use and never removed.
// Not safe for concurrent use.
type Aggregator struct {
	granularity time.Duration
	windows     map[Key]*Stats
	kinds       map[KindKey]*Stats
}

// NewAggregator returns an empty aggregator, granularity <= 0 selects DefaultGranularity.
// Timestamps recorded into one aggregator should share a location.
func NewAggregator(granularity time.Duration) *Aggregator {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	return &Aggregator{
		granularity: granularity,
		windows:     map[Key]*Stats{},
		kinds:       map[KindKey]*Stats{},
	}
}

func (a *Aggregator) Granularity() time.Duration {
	return a.granularity
}

func getOrCreate[K comparable](m map[K]*Stats, key K) *Stats {
	s, ok := m[key]
	if !ok {
		s = &Stats{}
		m[key] = s
	}
	return s
}

// Record counts one record in its window and in its window's record type bucket.
func (a *Aggregator) Record(system string, ts time.Time, kind int, duplicate bool) {
	key := Key{System: system, Minute: ts.Truncate(a.granularity)}
	win := getOrCreate(a.windows, key)
	byKind := getOrCreate(a.kinds, KindKey{Key: key, Kind: kind})
	if duplicate {
		win.Duplicates++
		byKind.Duplicates++
	} else {
		win.Unique++
		byKind.Unique++
	}
}

// Windows iterates all (system, window) buckets in no particular order.
func (a *Aggregator) Windows() iter.Seq2[Key, Stats] {
	return func(yield func(Key, Stats) bool) {
		for k, s := range a.windows {
			if !yield(k, *s) {
				return
			}
		}
	}
}

// Kinds iterates all (system, window, record type) buckets in no particular order.
func (a *Aggregator) Kinds() iter.Seq2[KindKey, Stats] {
	return func(yield func(KindKey, Stats) bool) {
		for k, s := range a.kinds {
			if !yield(k, *s) {
				return
			}
		}
	}
}

// Window returns the counts for a single window, zero if it was never used.
func (a *Aggregator) Window(key Key) Stats {
	if s, ok := a.windows[key]; ok {
		return *s
	}
	return Stats{}
}

// Systems returns every system seen, sorted.
func (a *Aggregator) Systems() []string {
	seen := map[string]struct{}{}
	for k := range a.windows {
		seen[k.System] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Len returns the number of (system, window) and (system, window, record type) buckets.
func (a *Aggregator) Len() (int, int) {
	return len(a.windows), len(a.kinds)
}
