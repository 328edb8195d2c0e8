package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/fingerprint"
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/records"
	st "github.com/AustralianCyberSecurityCentre/azul-dedup.git/settings"
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/window"
	"github.com/google/uuid"
)

// DetectResult holds the windows flagged across all inputs.
type DetectResult struct {
	In         int64 `json:"records_in"`
	Duplicates int64 `json:"duplicates"`
	// Inputs is the number of inputs read to the end.
	Inputs int `json:"inputs"`
	// Reports has one entry per system, ordered by system.
	Reports []window.SystemReport `json:"-"`
	// Complete is false if the run stopped before every input was read.
	Complete bool `json:"complete"`
}

// Detector reads inputs one after another, sharing one index so that records
// duplicated between inputs are found, and flags windows with many duplicates.
type Detector struct {
	Inputs   []string
	Opener   Opener
	Strength fingerprint.Strength
	// Policy with a zero threshold uses window.DefaultPolicy.
	Policy window.Policy
	// Granularity is the window width, zero for one minute.
	Granularity time.Duration
	Options     Options
	// Partial classifies whatever was read when the run is cancelled.
	// Otherwise a cancelled run returns no reports.
	Partial bool
}

// Run reads all inputs and classifies the windows.
func (d *Detector) Run(ctx context.Context) (*DetectResult, error) {
	if len(d.Inputs) == 0 {
		return nil, &UsageError{Msg: "at least one input is required"}
	}
	switch d.Strength {
	case fingerprint.StrengthStrong:
		return detect[fingerprint.Strong](ctx, d, fingerprint.SHA256{})
	case fingerprint.StrengthFast:
		return detect[fingerprint.Fast](ctx, d, fingerprint.XXHash{})
	}
	return nil, &UsageError{Msg: "unsupported fingerprint strength " + d.Strength.String()}
}

func detect[K comparable](ctx context.Context, d *Detector, computer fingerprint.Computer[K]) (*DetectResult, error) {
	log := st.Logger.With().Str("run", uuid.New().String()).Logger()
	opener := d.Opener
	if opener == nil {
		opener = FileOpener{}
	}
	policy := d.Policy
	if policy.Threshold <= 0 {
		policy = window.DefaultPolicy
	}
	e := newEngine[K](computer, d.Strength.String(), d.Options, log)
	agg := window.NewAggregator(d.Granularity)
	res := &DetectResult{}
	apply := func(rec *records.Record, _ K, isNew bool) error {
		if !isNew {
			res.Duplicates++
		}
		agg.Record(rec.System, rec.Time, rec.Kind, !isNew)
		return nil
	}

	startTime := time.Now()
	for _, name := range d.Inputs {
		src, err := opener.Open(name)
		if err != nil {
			return res, &SourceError{Name: name, Err: err}
		}
		log.Info().Str("input", name).Str("strength", d.Strength.String()).Msg("reading input")
		in, err := e.consume(ctx, name, src, apply)
		src.Close()
		res.In += in
		if err != nil {
			if d.Partial && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				log.Warn().Str("input", name).Int64("records", res.In).Msg("classifying incomplete data")
				res.Reports = policy.Classify(agg)
			}
			return res, err
		}
		res.Inputs++
	}
	res.Complete = true
	res.Reports = policy.Classify(agg)
	windows, kinds := agg.Len()
	log.Info().Int64("in", res.In).Int64("duplicates", res.Duplicates).Int("distinct", e.index.Len()).
		Int("windows", windows).Int("type_windows", kinds).Dur("elapsed", time.Since(startTime)).Msg("duplicate report finished")
	return res, nil
}
