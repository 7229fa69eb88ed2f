package session

import "errors"

var (
	// ErrNotFound is returned when the session id is unknown.
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyUsed is returned when a session is consumed a second time.
	ErrAlreadyUsed = errors.New("session already used")

	// ErrExpired is returned when the capture window has passed.
	ErrExpired = errors.New("session expired")

	// ErrNonceMismatch is returned when the echoed nonce does not match.
	ErrNonceMismatch = errors.New("session nonce mismatch")
)
