package window

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/prom"
)

// DefaultThreshold flags windows holding at least as many duplicates as unique records.
const DefaultThreshold = 1.0

// Policy decides which windows are reported.
type Policy struct {
	// Threshold is the duplicates / unique ratio at or above which a window is flagged.
	Threshold float64
}

var DefaultPolicy = Policy{Threshold: DefaultThreshold}

// Flagged reports whether the counts indicate duplicated data.
func (p Policy) Flagged(s Stats) bool {
	r := s.Ratio()
	return !math.IsNaN(r) && r >= p.Threshold
}

// Row is one flagged window. Kind is only set for record type rows.
type Row struct {
	Minute     time.Time
	Kind       int
	Total      int64
	Duplicates int64
	Percent    float64
}

func newRow(minute time.Time, kind int, s Stats) Row {
	return Row{Minute: minute, Kind: kind, Total: s.Total(), Duplicates: s.Duplicates, Percent: s.Percent()}
}

// SystemReport lists the flagged windows of one system.
type SystemReport struct {
	System string
	// Windows are flagged windows ordered by time.
	Windows []Row
	// Kinds are flagged record types ordered by time then type, excluding windows already in Windows.
	Kinds []Row
}

// Classify flags windows for every system in the aggregator, ordered by system.
// Record types are only checked within windows that were not flagged as a whole,
// so a duplicated window isn't reported again once for each type it holds.
func (p Policy) Classify(a *Aggregator) []SystemReport {
	reports := map[string]*SystemReport{}
	systems := a.Systems()
	for _, system := range systems {
		reports[system] = &SystemReport{System: system, Windows: []Row{}, Kinds: []Row{}}
	}

	flaggedWindows := map[Key]struct{}{}
	for key, stats := range a.Windows() {
		if !p.Flagged(stats) {
			continue
		}
		flaggedWindows[key] = struct{}{}
		r := reports[key.System]
		r.Windows = append(r.Windows, newRow(key.Minute, 0, stats))
	}

	for key, stats := range a.Kinds() {
		if _, covered := flaggedWindows[key.Key]; covered {
			continue
		}
		if !p.Flagged(stats) {
			continue
		}
		r := reports[key.System]
		r.Kinds = append(r.Kinds, newRow(key.Minute, key.Kind, stats))
	}

	ret := make([]SystemReport, 0, len(systems))
	for _, system := range systems {
		r := reports[system]
		slices.SortFunc(r.Windows, func(a, b Row) int {
			return a.Minute.Compare(b.Minute)
		})
		slices.SortFunc(r.Kinds, func(a, b Row) int {
			if c := a.Minute.Compare(b.Minute); c != 0 {
				return c
			}
			return cmp.Compare(a.Kind, b.Kind)
		})
		prom.WindowsFlagged.WithLabelValues("window").Add(float64(len(r.Windows)))
		prom.WindowsFlagged.WithLabelValues("type").Add(float64(len(r.Kinds)))
		ret = append(ret, *r)
	}
	return ret
}
