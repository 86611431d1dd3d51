package query

import (
	"errors"
	"fmt"
	"strings"
)

// Compilation failures. They are raised before any backend round trip.
var (
	// ErrInvalidOperator signals an operator code that does not compile.
	ErrInvalidOperator = errors.New("invalid operator")
	// ErrInvalidField signals a field name missing from the field map.
	ErrInvalidField = errors.New("invalid field")
	// ErrMissingValue signals an operator whose required value is absent.
	ErrMissingValue = errors.New("missing value")
	// ErrInvalidSort signals a sort direction code outside the defined set.
	ErrInvalidSort = errors.New("invalid sort direction")
)

// CompileError reports which condition failed to compile and why.
// Err is one of the sentinels above.
type CompileError struct {
	Field    string
	Operator Operator
	// Param names the missing parameter: value, value_to or value_list.
	Param string
	// Order is the rejected direction for ErrInvalidSort.
	Order SortDirection
	Err   error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	switch {
	case errors.Is(e.Err, ErrMissingValue):
		fmt.Fprintf(&b, ": %s is required for %s", e.Param, e.Operator.Label())
	case errors.Is(e.Err, ErrInvalidOperator):
		fmt.Fprintf(&b, ": %s", e.Operator)
	case errors.Is(e.Err, ErrInvalidSort):
		fmt.Fprintf(&b, ": %s", e.Order)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " (field %q)", e.Field)
	}
	return b.String()
}

func (e *CompileError) Unwrap() error { return e.Err }

// IsCompileError reports whether err is one of the compilation failures.
func IsCompileError(err error) bool {
	return errors.Is(err, ErrInvalidOperator) ||
		errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrInvalidSort) ||
		errors.Is(err, ErrMissingValue)
}
