package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCount indicates the first line is absent or not a label count
	ErrMissingCount = errors.New("missing label count")

	// ErrCountMismatch indicates the declared count differs from the parsed records
	ErrCountMismatch = errors.New("label count mismatch")

	// ErrMalformedLine indicates a label line that does not follow the c.e grammar
	ErrMalformedLine = errors.New("malformed label line")
)

// ParseError describes why a c.e file, or one line of it, could not be used.
type ParseError struct {
	Path   string
	Line   int // 0 when the error concerns the whole file
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, e.Reason)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	default:
		return e.Reason
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrInvalidCoordinate indicates coordinate out of valid bounds
type ErrInvalidCoordinate struct {
	Lat, Lon float64
}

func (e *ErrInvalidCoordinate) Error() string {
	return fmt.Sprintf("invalid coordinate: lat=%f lon=%f (lat must be ±90, lon must be ±180)",
		e.Lat, e.Lon)
}
