package registry

import "errors"

var (
	// ErrKeyNotFound is returned when the key id is not registered.
	ErrKeyNotFound = errors.New("device key not found")

	// ErrAlreadyRevoked is returned when revoking a key a second time.
	ErrAlreadyRevoked = errors.New("device key already revoked")

	// ErrMissingPublicKey is returned when registration lacks a public key.
	ErrMissingPublicKey = errors.New("public key is required")

	// ErrUnsupportedKey is returned when the public key is not an ECDSA key.
	ErrUnsupportedKey = errors.New("unsupported public key type")
)
