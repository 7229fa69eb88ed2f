package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/youthperformance/xlens/internal/adapters/repository"
	"github.com/youthperformance/xlens/internal/app"
	"github.com/youthperformance/xlens/internal/athlete"
	"github.com/youthperformance/xlens/internal/registry"
	"github.com/youthperformance/xlens/internal/session"
	"github.com/youthperformance/xlens/internal/vpc"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// NewKind tags a sentinel with the operation that raised it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags a sentinel with the operation and the underlying cause.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %v", op, kind, err)
}

// Wrap tags an error with the operation that raised it.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// classify maps domain sentinels to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, athlete.ErrNotFound),
		errors.Is(err, registry.ErrKeyNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, vpc.ErrCertificateNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, athlete.ErrDailyCapReached):
		return http.StatusTooManyRequests, "daily_cap_reached"
	case errors.Is(err, app.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"

	case errors.Is(err, session.ErrAlreadyUsed):
		return http.StatusConflict, "session_already_used"
	case errors.Is(err, session.ErrExpired):
		return http.StatusGone, "session_expired"
	case errors.Is(err, session.ErrNonceMismatch):
		return http.StatusBadRequest, "nonce_mismatch"

	case errors.Is(err, registry.ErrAlreadyRevoked),
		errors.Is(err, repository.ErrInvalidTransition),
		errors.Is(err, vpc.ErrJumpNotVerified):
		return http.StatusConflict, "conflict"

	case errors.Is(err, app.ErrDeviceNotUsable):
		return http.StatusForbidden, "device_not_usable"

	case errors.Is(err, athlete.ErrAgeOutOfRange),
		errors.Is(err, athlete.ErrMissingDisplayName),
		errors.Is(err, registry.ErrMissingPublicKey),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, vpc.ErrInvalidShareToken),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"

	case errors.Is(err, vpc.ErrInvalidEnvelope):
		return http.StatusConflict, "invalid_envelope"

	case errors.Is(err, app.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"

	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
