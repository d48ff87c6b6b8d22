package labels

import (
	"errors"
	"fmt"

	"github.com/beetlebugorg/labelindex/internal/parser"
)

var (
	// ErrEmptyIndex is reported when no usable label survived parsing and
	// validation. An empty index is well-formed but never answers a query.
	ErrEmptyIndex = errors.New("index contains no labels")

	// ErrNotFound is reported when the input file does not exist.
	ErrNotFound = errors.New("input not found")

	// ErrReleased is reported by a handle after Close.
	ErrReleased = errors.New("handle released")

	// ErrUnknownToken is reported by a Registry for tokens it never issued
	// or has already released.
	ErrUnknownToken = errors.New("unknown handle token")

	// ErrBuildPanic is reported when building an index panicked. The
	// boundary recovers and marks the handle invalid instead.
	ErrBuildPanic = errors.New("index build panicked")

	// ErrInvalidTemplate is reported for a template with a negative or
	// non-finite dimension. No label can be indexed with it.
	ErrInvalidTemplate = errors.New("invalid label template")
)

// ParseError describes a c.e file that could not be parsed.
type ParseError = parser.ParseError

// Reason classifies why a label was rejected.
type Reason int

const (
	// ReasonNegativeSize: the size factor is below zero.
	ReasonNegativeSize Reason = iota + 1
	// ReasonNonFiniteSize: the size factor is NaN or infinite.
	ReasonNonFiniteSize
	// ReasonNonFiniteAnchor: an anchor coordinate is NaN or infinite.
	ReasonNonFiniteAnchor
	// ReasonNonFiniteTime: the elimination time is NaN or infinite.
	ReasonNonFiniteTime
	// ReasonOutOfRange: the anchor is outside lon ±180 / lat ±90 in a geographic index.
	ReasonOutOfRange
	// ReasonDuplicateID: another label with the same id was accepted first.
	ReasonDuplicateID
	// ReasonInvalidTemplate: the template has a negative or non-finite dimension.
	ReasonInvalidTemplate
)

func (r Reason) String() string {
	switch r {
	case ReasonNegativeSize:
		return "negative size factor"
	case ReasonNonFiniteSize:
		return "non-finite size factor"
	case ReasonNonFiniteAnchor:
		return "non-finite anchor"
	case ReasonNonFiniteTime:
		return "non-finite elimination time"
	case ReasonOutOfRange:
		return "coordinate out of range"
	case ReasonDuplicateID:
		return "duplicate id"
	case ReasonInvalidTemplate:
		return "invalid template"
	default:
		return "unknown"
	}
}

// ValidationError describes a single label dropped while building an index.
//
// The underlying error, if any, can be accessed via errors.Unwrap.
type ValidationError struct {
	ID     int64
	Reason Reason
	Value  float64
	Err    error
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonNegativeSize, ReasonNonFiniteSize:
		return fmt.Sprintf("label %d rejected: %s (%g)", e.ID, e.Reason, e.Value)
	default:
		if e.Err != nil {
			return fmt.Sprintf("label %d rejected: %s: %v", e.ID, e.Reason, e.Err)
		}
		return fmt.Sprintf("label %d rejected: %s", e.ID, e.Reason)
	}
}

func (e *ValidationError) Unwrap() error { return e.Err }
