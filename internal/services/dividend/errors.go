package dividend

import "errors"

var (
	// ErrNotFound indicates the referenced dividend record does not exist
	ErrNotFound = errors.New("dividend not found")
	// ErrForbidden indicates the caller does not own the referenced record
	ErrForbidden = errors.New("dividend does not belong to user")
	// ErrInvalidDate indicates an unparseable date input
	ErrInvalidDate = errors.New("invalid date")
)
