package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFormat is returned for a blob name without a known extension.
	ErrUnknownFormat = errors.New("dataset: unknown format")
	// ErrBadMagic is returned when a binary matrix does not start with "CKM1".
	ErrBadMagic = errors.New("dataset: bad magic")
	// ErrTruncated is returned when a binary matrix is shorter than its header claims.
	ErrTruncated = errors.New("dataset: truncated matrix")
	// ErrUnknownPreset is returned for a preset name other than X1, X2 or X3.
	ErrUnknownPreset = errors.New("dataset: unknown preset")
	// ErrParse is wrapped by every CSV parse failure.
	ErrParse = errors.New("dataset: parse error")
)

// ParseError locates a CSV value that is not a number.
type ParseError struct {
	Line   int
	Column int
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dataset: line %d column %d: cannot parse %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }
