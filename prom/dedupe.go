package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DedupeIndexLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_index_lookups_total",
		Help: "The total number of duplicate index lookups",
	}, []string{"strength"})
	DedupeIndexHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_index_hits_total",
		Help: "The total number of lookups that found an existing fingerprint",
	}, []string{"strength"})
	DedupeIndexEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dedup_index_entries",
		Help: "Number of distinct fingerprints held by the duplicate index",
	}, []string{"strength"})
	DedupeIndexBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dedup_index_estimated_bytes",
		Help: "Estimated memory held by the duplicate index",
	}, []string{"strength"})
)
