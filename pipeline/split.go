package pipeline

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/fingerprint"
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/prom"
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/records"
	st "github.com/AustralianCyberSecurityCentre/azul-dedup.git/settings"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// KindCount is the number of duplicates found for one record type.
type KindCount struct {
	Kind       int   `json:"type"`
	Duplicates int64 `json:"duplicates"`
}

// SplitResult summarises a split.
type SplitResult struct {
	// In is the number of records read.
	In int64 `json:"records_in"`
	// Unique is the number of records seen for the first time.
	Unique int64 `json:"unique"`
	// Out is the number of records written to the unique output, zero without one.
	Out int64 `json:"records_out"`
	// Duplicates is the number of records whose content had already been seen.
	Duplicates int64 `json:"duplicates"`
	// ByKind lists duplicate counts by record type, ordered by type.
	ByKind []KindCount `json:"duplicates_by_type"`
}

// DuplicateLogLine is written to the duplicate log for each duplicate record.
type DuplicateLogLine struct {
	Run         string `json:"run"`
	Input       string `json:"input"`
	Record      int64  `json:"record"`
	System      string `json:"system"`
	Time        string `json:"time"`
	Type        int    `json:"type"`
	Subtype     *int   `json:"subtype,omitempty"`
	Bytes       int    `json:"bytes"`
	Fingerprint string `json:"sha256"`
}

// Splitter copies an input to an optional output with duplicates removed, and optionally
// the duplicates to a second output. Duplicates are always found with strong fingerprints
// since a false match would silently drop a unique record.
type Splitter struct {
	Input string
	// Output receives the first copy of every record, empty to only count.
	Output string
	// DuplicateOutput receives every later copy, only allowed with Output.
	DuplicateOutput string
	Opener          Opener
	Options         Options
	// DuplicateLog receives a json line per duplicate when not nil.
	DuplicateLog chan<- []byte
}

// Run performs the split. On error, outputs are removed where possible and the
// counts returned only cover the records processed before the failure.
func (s *Splitter) Run(ctx context.Context) (*SplitResult, error) {
	if s.Input == "" {
		return nil, &UsageError{Msg: "an input is required"}
	}
	if s.DuplicateOutput != "" && s.Output == "" {
		return nil, &UsageError{Msg: "a duplicate output can only be written together with an output"}
	}
	opener := s.Opener
	if opener == nil {
		opener = FileOpener{}
	}

	src, err := opener.Open(s.Input)
	if err != nil {
		return nil, &SourceError{Name: s.Input, Err: err}
	}
	defer src.Close()

	var unique, dups records.Writer
	if s.Output != "" {
		unique, err = opener.Create(s.Output)
		if err != nil {
			return nil, &SinkError{Name: s.Output, Err: err}
		}
	}
	if s.DuplicateOutput != "" {
		dups, err = opener.Create(s.DuplicateOutput)
		if err != nil {
			discard(unique)
			return nil, &SinkError{Name: s.DuplicateOutput, Err: err}
		}
	}

	res, err := s.split(ctx, src, unique, dups)
	if err != nil {
		discard(unique)
		discard(dups)
		return res, err
	}
	if unique != nil {
		if err := unique.Close(); err != nil {
			discard(dups)
			return res, &SinkError{Name: s.Output, Err: err}
		}
	}
	if dups != nil {
		if err := dups.Close(); err != nil {
			return res, &SinkError{Name: s.DuplicateOutput, Err: err}
		}
	}
	return res, nil
}

func (s *Splitter) split(ctx context.Context, src records.Source, unique, dups records.Writer) (*SplitResult, error) {
	runID := uuid.New().String()
	log := st.Logger.With().Str("run", runID).Logger()
	e := newEngine[fingerprint.Strong](fingerprint.SHA256{}, fingerprint.StrengthStrong.String(), s.Options, log)
	res := &SplitResult{}
	byKind := map[int]int64{}
	uniqueWritten := prom.RecordsWritten.WithLabelValues(s.Output)
	dupsWritten := prom.RecordsWritten.WithLabelValues(s.DuplicateOutput)

	startTime := time.Now()
	log.Info().Str("input", s.Input).Str("output", s.Output).Str("duplicates", s.DuplicateOutput).Msg("splitting duplicate records")
	in, err := e.consume(ctx, s.Input, src, func(rec *records.Record, key fingerprint.Strong, isNew bool) error {
		if isNew {
			res.Unique++
			if unique != nil {
				if err := unique.Write(rec); err != nil {
					return &SinkError{Name: s.Output, Err: err}
				}
				res.Out++
				uniqueWritten.Inc()
			}
			return nil
		}
		res.Duplicates++
		byKind[rec.Kind]++
		prom.RecordsDuplicate.WithLabelValues(strconv.Itoa(rec.Kind)).Inc()
		if dups != nil {
			if err := dups.Write(rec); err != nil {
				return &SinkError{Name: s.DuplicateOutput, Err: err}
			}
			dupsWritten.Inc()
		}
		s.logDuplicate(runID, res.Unique+res.Duplicates, rec, key)
		return nil
	})
	res.In = in
	res.ByKind = make([]KindCount, 0, len(byKind))
	for kind, count := range byKind {
		res.ByKind = append(res.ByKind, KindCount{Kind: kind, Duplicates: count})
	}
	slices.SortFunc(res.ByKind, func(a, b KindCount) int { return cmp.Compare(a.Kind, b.Kind) })
	if err != nil {
		log.Error().Err(err).Int64("records", res.In).Msg("split aborted")
		return res, err
	}
	log.Info().Int64("in", res.In).Int64("unique", res.Unique).Int64("duplicates", res.Duplicates).
		Dur("elapsed", time.Since(startTime)).Msg("split finished")
	return res, nil
}

func (s *Splitter) logDuplicate(runID string, position int64, rec *records.Record, key fingerprint.Strong) {
	if s.DuplicateLog == nil {
		return
	}
	line := DuplicateLogLine{
		Run:         runID,
		Input:       s.Input,
		Record:      position,
		System:      rec.System,
		Time:        rec.Time.Format("2006-01-02T15:04:05.00"),
		Type:        rec.Kind,
		Bytes:       rec.Len(),
		Fingerprint: key.String(),
	}
	if rec.HasSubtype {
		subtype := rec.Subtype
		line.Subtype = &subtype
	}
	encoded, err := json.Marshal(&line)
	if err != nil {
		st.Logger.Warn().Err(err).Msg("could not encode duplicate log line")
		return
	}
	s.DuplicateLog <- encoded
}
