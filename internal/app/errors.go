package app

import "errors"

var (
	// ErrNotStarted is returned when an operation is invoked before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrQueueFull is returned when the measurement queue sheds a task.
	ErrQueueFull = errors.New("measurement queue is full")

	// ErrDeviceNotUsable is returned when a session is requested against a
	// revoked, unknown, or untrusted device key.
	ErrDeviceNotUsable = errors.New("device key not usable")
)
