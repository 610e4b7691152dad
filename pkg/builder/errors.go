package builder

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrValidation is the sentinel every *ValidationError unwraps to
var ErrValidation = errors.New("invalid generation request")

// ValidationError names the offending input field
type ValidationError struct {
	Field  string
	Reason string
	Value  string // offending input, empty when not useful
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func rangeError(field string, v, lo, hi float64) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf("must be between %g and %g", lo, hi),
		Value:  strconv.FormatFloat(v, 'f', -1, 64),
	}
}
