package athlete

import "errors"

var (
	// ErrNotFound is returned when the athlete id is unknown.
	ErrNotFound = errors.New("athlete not found")

	// ErrAgeOutOfRange is returned when the birth year places the athlete
	// outside the 13 to 22 range.
	ErrAgeOutOfRange = errors.New("athlete age out of range")

	// ErrMissingDisplayName is returned when registration lacks a name.
	ErrMissingDisplayName = errors.New("display name is required")

	// ErrDailyCapReached is returned when the athlete has no submission
	// slots left today.
	ErrDailyCapReached = errors.New("daily submission cap reached")
)
