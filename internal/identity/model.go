package identity

import (
	"errors"
	"time"
)

var (
	// ErrDuplicateIdentity occurs when the username is already registered.
	ErrDuplicateIdentity = errors.New("username already registered")

	// ErrInvalidRegistration occurs when the submitted username or secret
	// fails validation.
	ErrInvalidRegistration = errors.New("invalid registration")

	// ErrInvalidCredentials covers both an unknown username and a wrong
	// secret, so callers cannot probe which usernames exist.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUnknownIdentity occurs when a user id no longer resolves to a user.
	ErrUnknownIdentity = errors.New("unknown user")
)

// User represents a registered account holder. Immutable after creation.
type User struct {
	ID           string
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}
