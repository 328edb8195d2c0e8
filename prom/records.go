package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_records_read_total",
		Help: "The total number of records read from each input",
	}, []string{"input"})
	RecordsReadBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_records_read_bytes_total",
		Help: "The total number of record bytes read from each input",
	}, []string{"input"})
	RecordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_records_written_total",
		Help: "The total number of records written to each output",
	}, []string{"output"})
	RecordsDuplicate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_records_duplicate_total",
		Help: "Duplicate records found, by record type",
	}, []string{"type"})
	FingerprintBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dedup_fingerprint_batch_duration",
		Help:    "Duration of fingerprinting one batch of records",
		Buckets: []float64{.00001, .0001, .001, .01, .1, 1.0, 5.0},
	})
	WindowsFlagged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_windows_flagged_total",
		Help: "Windows reported as likely duplicated data",
	}, []string{"level"})
)
