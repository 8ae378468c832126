package errors

import "errors"

var (
	ErrNotFound = errors.New("venue not found")

	ErrInvalidID = errors.New("invalid venue ID format")

	ErrItemNotFound = errors.New("rental item not found")
)
