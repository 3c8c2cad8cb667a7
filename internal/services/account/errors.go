package account

import "errors"

var (
	// ErrEmailTaken indicates a registration attempt with an email that
	// already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates a failed login. The same error covers
	// unknown emails and wrong passwords so callers cannot probe for
	// registered addresses.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
