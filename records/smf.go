package records

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Segment control values held in the third byte of a descriptor word.
const (
	segmentComplete = 0
	segmentFirst    = 1
	segmentLast     = 2
	segmentMiddle   = 3
)

const descriptorLength = 4

// MaxSegmentData is the largest amount of record content carried by one segment.
const MaxSegmentData = 32756

// Size of the buffered readers and writers
const bufferBytes = 1024 * 1024

// SmfReader decodes descriptor word framed records from a stream.
type SmfReader struct {
	r      *bufio.Reader
	closer io.Closer
	offset int64
	names  systemNames
}

// NewReader returns a reader of records from r. If r is an io.Closer it is closed by Close.
func NewReader(r io.Reader) *SmfReader {
	closer, _ := r.(io.Closer)
	return &SmfReader{
		r:      bufio.NewReaderSize(r, bufferBytes),
		closer: closer,
		names:  systemNames{},
	}
}

// readSegment reads one descriptor word and its content, appending the raw bytes to framed.
func (s *SmfReader) readSegment(framed []byte) (int, []byte, []byte, error) {
	var rdw [descriptorLength]byte
	n, err := io.ReadFull(s.r, rdw[:])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil, framed, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, framed, &MalformedRecordError{Offset: s.offset, Reason: fmt.Sprintf("truncated descriptor word, %d bytes", n)}
		}
		return 0, nil, framed, err
	}
	length := int(binary.BigEndian.Uint16(rdw[0:2]))
	if length < descriptorLength {
		return 0, nil, framed, &MalformedRecordError{Offset: s.offset, Reason: fmt.Sprintf("descriptor length %d is less than %d", length, descriptorLength)}
	}
	start := len(framed)
	framed = append(framed, rdw[:]...)
	framed = append(framed, make([]byte, length-descriptorLength)...)
	n, err = io.ReadFull(s.r, framed[start+descriptorLength:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil, framed, &MalformedRecordError{Offset: s.offset, Reason: fmt.Sprintf("expected %d bytes of data, found %d", length-descriptorLength, n)}
		}
		return 0, nil, framed, err
	}
	s.offset += int64(length)
	return int(rdw[2] & 0x03), framed[start+descriptorLength:], framed, nil
}

// Next reads the next complete record, reassembling spanned segments.
func (s *SmfReader) Next() (*Record, error) {
	recordOffset := s.offset
	control, data, framed, err := s.readSegment(nil)
	if err != nil {
		return nil, err
	}
	rec := &Record{}
	switch control {
	case segmentComplete:
		rec.Data = data
	case segmentFirst:
		assembled := append([]byte{}, data...)
		for control != segmentLast {
			control, data, framed, err = s.readSegment(framed)
			if errors.Is(err, io.EOF) {
				return nil, &MalformedRecordError{Offset: recordOffset, Reason: "end of input inside spanned record"}
			}
			if err != nil {
				return nil, err
			}
			if control != segmentMiddle && control != segmentLast {
				return nil, &MalformedRecordError{Offset: recordOffset, Reason: fmt.Sprintf("unexpected segment type %d inside spanned record", control)}
			}
			assembled = append(assembled, data...)
		}
		rec.Data = assembled
	default:
		return nil, &MalformedRecordError{Offset: recordOffset, Reason: fmt.Sprintf("spanned record starts with segment type %d", control)}
	}
	rec.framed = framed
	if err := decodeHeader(rec, s.names); err != nil {
		return nil, &MalformedRecordError{Offset: recordOffset, Reason: err.Error()}
	}
	return rec, nil
}

func (s *SmfReader) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// SmfWriter writes records with descriptor words.
type SmfWriter struct {
	w      *bufio.Writer
	closer io.Closer
}

// NewWriter returns a writer of records to w. If w is an io.Closer it is closed by Close.
func NewWriter(w io.Writer) *SmfWriter {
	closer, _ := w.(io.Closer)
	return &SmfWriter{w: bufio.NewWriterSize(w, bufferBytes), closer: closer}
}

// Frame returns the record as it should be written, reusing the bytes it was read from if available.
func Frame(rec *Record) []byte {
	if rec.framed != nil {
		return rec.framed
	}
	if len(rec.Data) <= MaxSegmentData {
		return appendSegment(make([]byte, 0, len(rec.Data)+descriptorLength), segmentComplete, rec.Data)
	}
	framed := make([]byte, 0, len(rec.Data)+descriptorLength*(len(rec.Data)/MaxSegmentData+1))
	remaining := rec.Data
	control := byte(segmentFirst)
	for len(remaining) > MaxSegmentData {
		framed = appendSegment(framed, control, remaining[:MaxSegmentData])
		remaining = remaining[MaxSegmentData:]
		control = segmentMiddle
	}
	return appendSegment(framed, segmentLast, remaining)
}

func appendSegment(dst []byte, control byte, data []byte) []byte {
	var rdw [descriptorLength]byte
	binary.BigEndian.PutUint16(rdw[0:2], uint16(len(data)+descriptorLength))
	rdw[2] = control
	dst = append(dst, rdw[:]...)
	return append(dst, data...)
}

func (s *SmfWriter) Write(rec *Record) error {
	_, err := s.w.Write(Frame(rec))
	return err
}

// Close flushes buffered records before closing the underlying writer.
func (s *SmfWriter) Close() error {
	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
