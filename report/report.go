/*
Package report renders split and duplicate detection results for people, as text
tables, or for other tools, as json.
*/
package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/pipeline"
	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/window"
	"github.com/goccy/go-json"
)

const splitWarning = `Warning:

Some SMF record types seem to naturally include the same data and
the SMF record time fields are not granular enough to distinguish
them. Duplicate records do not necessarily indicate a problem,
they might be valid data.

`

// WriteWarning prints the caveat shown before split results.
func WriteWarning(w io.Writer) error {
	_, err := io.WriteString(w, splitWarning)
	return err
}

// formatMinute renders a window start, dropping seconds when they are zero.
func formatMinute(t time.Time) string {
	if t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04")
	}
	return t.Format("2006-01-02T15:04:05")
}

// WriteSplit prints the split counts followed by duplicates per record type.
func WriteSplit(w io.Writer, res *pipeline.SplitResult) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Finished, %d records in, %d records out, %d duplicates.\n", res.In, res.Out, res.Duplicates)
	if res.Duplicates > 0 {
		bw.WriteString("\nDuplicates by type:\n")
		for _, kc := range res.ByKind {
			fmt.Fprintf(bw, "%4d : %8d\n", kc.Kind, kc.Duplicates)
		}
	}
	return bw.Flush()
}

// WriteDetect prints the totals, then for each system the flagged windows and
// the flagged record types of windows that were not flagged as a whole.
// Systems without anything flagged are not printed.
func WriteDetect(w io.Writer, res *pipeline.DetectResult) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Finished, %d records in, %d duplicates.\n", res.In, res.Duplicates)
	for _, sr := range res.Reports {
		if len(sr.Windows) > 0 {
			fmt.Fprintf(bw, "\nSystem : %s\n", sr.System)
			fmt.Fprintf(bw, "\n%-20s %8s %8s %6s\n\n", "Minute", "Records", "Dup", "Dup%")
			for _, row := range sr.Windows {
				fmt.Fprintf(bw, "%-20s %8d %8d %6.0f\n", formatMinute(row.Minute), row.Total, row.Duplicates, row.Percent)
			}
		}
		if len(sr.Kinds) > 0 {
			fmt.Fprintf(bw, "\nSystem : %s\n", sr.System)
			fmt.Fprintf(bw, "\n%-20s %4s %8s %8s %6s\n\n", "Minute", "Type", "Records", "Dup", "Dup%")
			for _, row := range sr.Kinds {
				fmt.Fprintf(bw, "%-20s %4d %8d %8d %6.0f\n", formatMinute(row.Minute), row.Kind, row.Total, row.Duplicates, row.Percent)
			}
		}
	}
	return bw.Flush()
}

type jsonRow struct {
	Minute time.Time `json:"minute"`
	// only set on record type rows, since type 0 is a real record type
	Type       *int  `json:"type,omitempty"`
	Records    int64 `json:"records"`
	Duplicates int64 `json:"duplicates"`
	// null when the window held no unique records
	Percent *float64 `json:"duplicate_percent"`
}

type jsonSystem struct {
	System  string    `json:"system"`
	Windows []jsonRow `json:"windows"`
	Types   []jsonRow `json:"types"`
}

type jsonDetect struct {
	*pipeline.DetectResult
	Systems []jsonSystem `json:"systems"`
}

func toJSONRows(rows []window.Row, withType bool) []jsonRow {
	ret := make([]jsonRow, 0, len(rows))
	for _, row := range rows {
		jr := jsonRow{Minute: row.Minute, Records: row.Total, Duplicates: row.Duplicates}
		if withType {
			kind := row.Kind
			jr.Type = &kind
		}
		if !math.IsInf(row.Percent, 0) && !math.IsNaN(row.Percent) {
			percent := row.Percent
			jr.Percent = &percent
		}
		ret = append(ret, jr)
	}
	return ret
}

// WriteDetectJSON writes the detection result as a single json document.
func WriteDetectJSON(w io.Writer, res *pipeline.DetectResult) error {
	doc := jsonDetect{DetectResult: res, Systems: make([]jsonSystem, 0, len(res.Reports))}
	for _, sr := range res.Reports {
		doc.Systems = append(doc.Systems, jsonSystem{
			System:  sr.System,
			Windows: toJSONRows(sr.Windows, false),
			Types:   toJSONRows(sr.Kinds, true),
		})
	}
	return writeJSON(w, &doc)
}

// WriteSplitJSON writes the split result as a single json document.
func WriteSplitJSON(w io.Writer, res *pipeline.SplitResult) error {
	return writeJSON(w, res)
}

func writeJSON(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	encoded = append(encoded, '\n')
	_, err = w.Write(encoded)
	return err
}
