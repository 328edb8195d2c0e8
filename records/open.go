package records

import (
	"errors"
	"io"
	"os"
)

// StdStream is the name used for stdin when opening and stdout when creating.
const StdStream = "-"

// Aborter is implemented by writers that can discard everything written so far.
type Aborter interface {
	Abort() error
}

// Open returns a Source reading the named file, or stdin for "-".
func Open(name string) (Source, error) {
	if name == StdStream {
		return NewReader(io.NopCloser(os.Stdin)), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return NewReader(f), nil
}

// Create returns a Writer to the named file, or stdout for "-".
// An existing file is truncated. Aborting a file writer removes the file,
// aborting the stdout writer drops whatever is still buffered.
func Create(name string) (Writer, error) {
	if name == StdStream {
		return newStreamWriter(os.Stdout), nil
	}
	f, err := os.OpenFile(name, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, err
	}
	return &fileWriter{SmfWriter: NewWriter(f), path: name}, nil
}

type fileWriter struct {
	*SmfWriter
	path string
}

// Abort closes the file without flushing and removes it.
func (f *fileWriter) Abort() error {
	var err error
	if f.closer != nil {
		err = f.closer.Close()
	}
	if rerr := os.Remove(f.path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
		return rerr
	}
	return err
}

// streamWriter writes to a stream it does not own, such as stdout.
type streamWriter struct {
	*SmfWriter
}

func newStreamWriter(w io.Writer) *streamWriter {
	return &streamWriter{SmfWriter: NewWriter(nopWriteCloser{w})}
}

// Abort discards buffered records. Records already flushed to the stream cannot be taken back.
func (s *streamWriter) Abort() error {
	s.w.Reset(io.Discard)
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
