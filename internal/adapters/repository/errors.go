package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateJump     = errors.New("jump already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidLimit      = errors.New("invalid leaderboard limit")
)
