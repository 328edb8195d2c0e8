package pipeline

import "github.com/AustralianCyberSecurityCentre/azul-dedup.git/records"

// Opener provides inputs and outputs by name.
type Opener interface {
	Open(name string) (records.Source, error)
	Create(name string) (records.Writer, error)
}

// FileOpener reads and writes files, with "-" meaning stdin or stdout.
type FileOpener struct{}

func (FileOpener) Open(name string) (records.Source, error) {
	return records.Open(name)
}

func (FileOpener) Create(name string) (records.Writer, error) {
	return records.Create(name)
}

// discard throws away a partially written output.
func discard(w records.Writer) {
	if w == nil {
		return
	}
	if a, ok := w.(records.Aborter); ok {
		_ = a.Abort()
		return
	}
	_ = w.Close()
}
