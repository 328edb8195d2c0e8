/*
Package records reads and writes length-prefixed binary event records.

The on-disk format is z/OS SMF data with record descriptor words (RECFM=V, VB or
VBS). Each record is preceded by a 4 byte descriptor: a big endian length that
includes the descriptor itself, a segment control byte and a reserved byte.
Spanned records are split across several segments which are reassembled here.

Only the fields needed for duplicate detection are decoded from the record
header: record type and subtype, the record date and time and the system id.
*/
package records

import (
	"fmt"
	"time"
)

// Record is one decoded event record.
type Record struct {
	// Data is the record content following the descriptor word, used for fingerprinting.
	Data []byte
	// System is the id of the system that wrote the record.
	System string
	// Time is when the record was written, in the writing system's local time.
	Time time.Time
	// Kind is the record type.
	Kind int
	// Subtype is only meaningful when HasSubtype is set.
	Subtype    int
	HasSubtype bool

	// framed holds the record exactly as read including descriptor words
	framed []byte
}

// Len returns the length of the record content.
func (r *Record) Len() int {
	return len(r.Data)
}

// Source yields records in order.
type Source interface {
	// Next returns the next record, or io.EOF once the source is exhausted.
	Next() (*Record, error)
	Close() error
}

// Writer stores records in their original framing.
type Writer interface {
	Write(rec *Record) error
	Close() error
}

// MalformedRecordError is raised when input can't be decoded as a record.
type MalformedRecordError struct {
	// Offset of the descriptor word that started the bad record
	Offset int64
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record at offset %d: %s", e.Offset, e.Reason)
}
