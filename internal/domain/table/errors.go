package table

import (
	"errors"
	"fmt"
)

// Sentinel kinds for parse failures.
var (
	ErrEmpty      = errors.New("file is empty")
	ErrLFSPointer = errors.New("file is a Git LFS pointer, not data")
	ErrMalformed  = errors.New("malformed file")
)

// ParseError describes why a submission could not be parsed.
type ParseError struct {
	File string
	// Line is 1-based; 0 when unknown.
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
