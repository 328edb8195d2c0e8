package records

import "io"

// MemorySource yields records from a slice, mostly useful for testing.
type MemorySource struct {
	recs   []*Record
	next   int
	Closed bool
}

func NewMemorySource(recs ...*Record) *MemorySource {
	return &MemorySource{recs: recs}
}

func (m *MemorySource) Next() (*Record, error) {
	if m.next >= len(m.recs) {
		return nil, io.EOF
	}
	rec := m.recs[m.next]
	m.next++
	return rec, nil
}

func (m *MemorySource) Close() error {
	m.Closed = true
	return nil
}

// MemoryWriter keeps every record written to it.
type MemoryWriter struct {
	Records []*Record
	Closed  bool
}

func (m *MemoryWriter) Write(rec *Record) error {
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MemoryWriter) Close() error {
	m.Closed = true
	return nil
}
