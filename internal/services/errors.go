// Package services implements the urge coordinator: validation, the
// cache-assisted daily-limit policy, the transactional commit, and the
// cached read path. This file centralizes service-level error values so
// they can be consistently returned by service methods and checked by
// callers.
//
// These errors are internal to the service layer; translation into the
// external response envelope (VALIDATION_ERROR, RATE_LIMIT_EXCEEDED,
// DATABASE_ERROR) happens at the handler layer.
package services

import (
	"errors"
	"time"
)

var (
	// ErrInvalidTutorialID is returned when the tutorial identifier is
	// empty or longer than the allowed 100 characters.
	ErrInvalidTutorialID = errors.New("invalid tutorial id")

	// ErrInvalidClientAddr is returned when the client address is present
	// but does not look like an IP address (the "unknown" sentinel and
	// loopback addresses are deliberately allowed for local testing).
	ErrInvalidClientAddr = errors.New("invalid client address")
)

// RateLimitError is returned by Urge when the daily quota for the
// (tutorial, client) pair is exhausted. It is a policy denial, not a fault:
// callers should surface it as 429 and must not log it at error level.
type RateLimitError struct {
	// NextAllowedAt is when the window reopens, when known.
	NextAllowedAt *time.Time
}

// Error implements the error interface.
func (e *RateLimitError) Error() string { return "daily urge limit reached" }

// IsRateLimited reports whether err is (or wraps) a RateLimitError and
// returns it for access to NextAllowedAt.
func IsRateLimited(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
