/*
Package pipeline drives records from inputs through fingerprinting and the duplicate index.

Splitter copies one input into unique and duplicate outputs. Detector reads one or
more inputs and reports time windows that appear to hold duplicated data.

Records are read in batches. Fingerprints for a batch are computed by several
goroutines, then the batch is applied to the index one record at a time in input
order, so the first copy of a record is always the one treated as unique.
*/
package pipeline

import (
	"context"
	"errors"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/dedupe"
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/fingerprint"
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/prom"
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/records"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

const defaultBatchSize = 1024

// Options tune throughput, they don't change results.
type Options struct {
	// Workers computing fingerprints, zero or less uses GOMAXPROCS.
	Workers int
	// BatchSize is the number of records fingerprinted together.
	BatchSize int
	// SizeHint is the expected number of distinct records.
	SizeHint int
	// WarnBytes logs a warning once when the index is estimated to pass this size, zero disables.
	WarnBytes uint64
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

func (o Options) batchSize() int {
	if o.BatchSize <= 0 {
		return defaultBatchSize
	}
	return o.BatchSize
}

type hashed[K comparable] struct {
	rec *records.Record
	key K
}

// hashBatch fills in the fingerprint of every record in batch.
func hashBatch[K comparable](computer fingerprint.Computer[K], batch []hashed[K], workers int) {
	startTime := time.Now()
	defer func() {
		prom.FingerprintBatchDuration.Observe(time.Since(startTime).Seconds())
	}()
	if workers <= 1 || len(batch) < 2*workers {
		for i := range batch {
			batch[i].key = computer.Sum(batch[i].rec.Data)
		}
		return
	}
	chunk := (len(batch) + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < len(batch); lo += chunk {
		part := batch[lo:min(lo+chunk, len(batch))]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range part {
				part[i].key = computer.Sum(part[i].rec.Data)
			}
		}()
	}
	wg.Wait()
}

// applyFunc receives each record in input order along with whether it was new to the index.
type applyFunc[K comparable] func(rec *records.Record, key K, isNew bool) error

// engine owns the index for a run. All index access happens on the goroutine calling consume.
type engine[K comparable] struct {
	computer fingerprint.Computer[K]
	index    *dedupe.Index[K]
	opts     Options
	log      zerolog.Logger
	warned   bool
}

func newEngine[K comparable](computer fingerprint.Computer[K], label string, opts Options, log zerolog.Logger) *engine[K] {
	return &engine[K]{
		computer: computer,
		index:    dedupe.New[K](label, opts.SizeHint),
		opts:     opts,
		log:      log,
	}
}

func (e *engine[K]) checkMemory() {
	if e.warned || e.opts.WarnBytes == 0 {
		return
	}
	est := e.index.EstimatedBytes()
	if est < e.opts.WarnBytes {
		return
	}
	e.warned = true
	e.log.Warn().Str("estimated", humanize.IBytes(est)).Int("distinct", e.index.Len()).
		Msg("duplicate index is large, consider fast fingerprints to reduce memory")
}

// consume reads src until it is exhausted, returning the number of records read.
// A read error or an error from apply stops processing immediately.
func (e *engine[K]) consume(ctx context.Context, name string, src records.Source, apply applyFunc[K]) (int64, error) {
	readCount := prom.RecordsRead.WithLabelValues(name)
	readBytes := prom.RecordsReadBytes.WithLabelValues(name)
	workers := e.opts.workers()
	batch := make([]hashed[K], 0, e.opts.batchSize())
	var count int64
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		batch = batch[:0]
		var readErr error
		var size int
		for len(batch) < cap(batch) {
			rec, err := src.Next()
			if err != nil {
				readErr = err
				break
			}
			size += rec.Len()
			batch = append(batch, hashed[K]{rec: rec})
		}
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return count, &SourceError{Name: name, Err: readErr}
		}
		readCount.Add(float64(len(batch)))
		readBytes.Add(float64(size))

		hashBatch(e.computer, batch, workers)
		for i := range batch {
			isNew := e.index.TestAndInsert(batch[i].key)
			count++
			if err := apply(batch[i].rec, batch[i].key, isNew); err != nil {
				return count, err
			}
		}
		e.checkMemory()
		if readErr != nil {
			e.log.Debug().Str("input", name).Int64("records", count).Int("distinct", e.index.Len()).Msg("input exhausted")
			return count, nil
		}
	}
}
