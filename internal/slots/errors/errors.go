package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid slot ID format")

	ErrLockConflict = errors.New("slot is not lockable in its current state")

	ErrNotEditable = errors.New("slot cannot be edited in its current state")
)
