package db

import "errors"

// ErrBackend matches every *Error via errors.Is.
var ErrBackend = errors.New("db: backend failure")

// Op names for error context.
const (
	OpSelect    = "select"
	OpSelectOne = "select_one"
	OpCount     = "count"
	OpScan      = "scan"
	OpInsert    = "insert"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "db: " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Is makes every *Error match ErrBackend.
func (e *Error) Is(target error) bool { return target == ErrBackend }

// Wrap returns nil for a nil err, otherwise an *Error for op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
