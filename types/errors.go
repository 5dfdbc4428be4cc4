package types

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat marks a malformed point-cloud, VTU or blockMeshDict file.
	ErrFormat = errors.New("malformed mesh file")
	// ErrRankExceeded is returned when a POD rank is outside [1, min(n, f)].
	ErrRankExceeded = errors.New("requested rank exceeds available singular values")
	// ErrSingularSystem is returned when an RBF interpolation system cannot be solved.
	ErrSingularSystem = errors.New("singular interpolation system")
	// ErrNotFitted is returned by transforms invoked before Fit.
	ErrNotFitted = errors.New("model is not fitted")
	// ErrAlreadyFitted is returned by a second Fit; fitted state is written once.
	ErrAlreadyFitted = errors.New("model is already fitted")
)

// FormatError locates a parse failure. Line is 1-based, 0 when unknown.
type FormatError struct {
	Source string
	Line   int
	Reason string
}

func NewFormatError(source string, line int, format string, args ...any) *FormatError {
	return &FormatError{
		Source: source,
		Line:   line,
		Reason: fmt.Sprintf(format, args...),
	}
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s:%d: %s", ErrFormat, e.Source, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrFormat, e.Source, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrFormat }
