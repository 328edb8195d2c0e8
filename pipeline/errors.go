package pipeline

import "fmt"

// UsageError means the run was configured incorrectly and nothing was processed.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// SourceError means an input could not be opened or read.
type SourceError struct {
	Name string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("input %s: %v", e.Name, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// SinkError means an output could not be created or written.
type SinkError struct {
	Name string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("output %s: %v", e.Name, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
