package dedupe

import (
	"unsafe"

	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/prom"
	"github.com/prometheus/client_golang/prometheus"
)

// map buckets hold 8 entries and grow at an average load of 6.5
const mapOverhead = 8.0 / 6.5

// Index is the set of fingerprints seen so far.
type Index[K comparable] struct {
	seen     map[K]struct{}
	entryLen float64
	lookups  prometheus.Counter
	hits     prometheus.Counter
	entries  prometheus.Gauge
	size     prometheus.Gauge
}

// New returns an empty index. label names the fingerprint kind in metrics and
// sizeHint presizes the index for the expected number of distinct records.
func New[K comparable](label string, sizeHint int) *Index[K] {
	if sizeHint < 0 {
		sizeHint = 0
	}
	var zero K
	return &Index[K]{
		seen: make(map[K]struct{}, sizeHint),
		// one extra byte per entry for the bucket's top hash
		entryLen: float64(unsafe.Sizeof(zero)+1) * mapOverhead,
		lookups:  prom.DedupeIndexLookups.WithLabelValues(label),
		hits:     prom.DedupeIndexHits.WithLabelValues(label),
		entries:  prom.DedupeIndexEntries.WithLabelValues(label),
		size:     prom.DedupeIndexBytes.WithLabelValues(label),
	}
}

// TestAndInsert returns true if key had not been seen before, recording it as seen.
// Every later call with the same key returns false.
func (ix *Index[K]) TestAndInsert(key K) bool {
	ix.lookups.Inc()
	if _, ok := ix.seen[key]; ok {
		ix.hits.Inc()
		return false
	}
	ix.seen[key] = struct{}{}
	ix.entries.Inc()
	return true
}

// Len returns the number of distinct fingerprints in the index.
func (ix *Index[K]) Len() int {
	return len(ix.seen)
}

// EstimatedBytes approximates the memory held by the index.
func (ix *Index[K]) EstimatedBytes() uint64 {
	est := uint64(float64(len(ix.seen)) * ix.entryLen)
	ix.size.Set(float64(est))
	return est
}
