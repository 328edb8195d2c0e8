/*
Package testdata builds SMF record files for tests.
*/
package testdata

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-dedup.git/records"
	"github.com/stretchr/testify/require"
)

// Minute is the default timestamp of generated records.
var Minute = time.Date(2024, time.March, 5, 13, 47, 0, 0, time.UTC)

// SMF describes one record to generate. Subtype less than zero leaves it out.
type SMF struct {
	Kind    int
	Subtype int
	System  string
	Time    time.Time
	Payload string
}

// Record encodes the header and payload into a record ready to be written.
func (s SMF) Record() *records.Record {
	when := s.Time
	if when.IsZero() {
		when = Minute
	}
	system := s.System
	if system == "" {
		system = "SYSA"
	}
	data := append(records.EncodeHeader(s.Kind, s.Subtype, system, when), s.Payload...)
	return &records.Record{Data: data, Kind: s.Kind, System: system, Time: when, Subtype: max(s.Subtype, 0), HasSubtype: s.Subtype >= 0}
}

// Payloads generates one record of kind per payload, all without subtype.
func Payloads(kind int, payloads ...string) []SMF {
	ret := make([]SMF, 0, len(payloads))
	for _, p := range payloads {
		ret = append(ret, SMF{Kind: kind, Subtype: -1, Payload: p})
	}
	return ret
}

// WriteFile writes the described records to path.
func WriteFile(t testing.TB, path string, recs ...SMF) {
	w, err := records.Create(path)
	require.Nil(t, err)
	for _, r := range recs {
		require.Nil(t, w.Write(r.Record()))
	}
	require.Nil(t, w.Close())
}

// ReadFile returns every record in path.
func ReadFile(t testing.TB, path string) []*records.Record {
	src, err := records.Open(path)
	require.Nil(t, err)
	defer src.Close()
	var ret []*records.Record
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return ret
		}
		require.Nil(t, err)
		ret = append(ret, rec)
	}
}
