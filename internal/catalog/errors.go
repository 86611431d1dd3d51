package catalog

import "errors"

var (
	// ErrItemNotFound signals a missing item.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvalidInput signals a create request with missing or bad fields.
	ErrInvalidInput = errors.New("invalid input")
)
