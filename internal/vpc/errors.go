package vpc

import "errors"

var (
	// ErrCertificateNotFound is returned when the certificate id is unknown.
	ErrCertificateNotFound = errors.New("certificate not found")

	// ErrJumpNotVerified is returned when issuing against a jump that did
	// not complete verification.
	ErrJumpNotVerified = errors.New("jump is not verified")

	// ErrInvalidEnvelope is returned when a signed envelope fails to parse
	// or verify.
	ErrInvalidEnvelope = errors.New("invalid certificate envelope")

	// ErrInvalidShareToken is returned when a share token fails validation.
	ErrInvalidShareToken = errors.New("invalid share token")

	// ErrBadSigningKey is returned when the issuer key is malformed.
	ErrBadSigningKey = errors.New("malformed signing key")
)
