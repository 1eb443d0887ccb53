package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for few-body operations.
var (
	// ErrInvalidState indicates NaN/Inf values or time running backwards.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN, Inf or negative time step)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrShortRead indicates a snapshot record ended before its fixed size.
	ErrShortRead = errors.New("dynamo: snapshot record truncated")

	// ErrDegenerate indicates a particle set the core cannot work on.
	ErrDegenerate = errors.New("dynamo: degenerate particle group")
)

// RecordError wraps a failed snapshot read with the record it belongs to.
type RecordError struct {
	Record  string
	Want    int
	Got     int
	Wrapped error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: read %d of %d bytes: %v", e.Record, e.Got, e.Want, e.Wrapped)
}

func (e *RecordError) Unwrap() error {
	return e.Wrapped
}

// Bounds returns an ErrParameterBounds error naming the offending parameter.
func Bounds(name string, value any) error {
	return fmt.Errorf("%w: %s = %v", ErrParameterBounds, name, value)
}
