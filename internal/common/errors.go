// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// ErrorUnauthorized is returned for every authentication failure:
	// unknown credential, expired credential, or wrong secret. The cause is
	// never distinguished to the caller.
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors (malformed or oversized input, rejected before any
	// external call).
	ErrorValidation = errors.New("validation error")

	// ErrorClassificationUnavailable means at least one classification call
	// failed or timed out. Nothing is cached or persisted in that case.
	ErrorClassificationUnavailable = errors.New("classification unavailable")

	// ErrorPersistenceFailed means the durable write failed after a
	// successful classification.
	ErrorPersistenceFailed = errors.New("persistence failed")

	// Auth token errors (invalid, malformed or expired report token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// RateLimitError is returned when a credential exceeds its per-minute
// budget. RetryAfterSec tells the caller when the current window resets.
type RateLimitError struct {
	Limit         int
	RetryAfterSec int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d/min exceeded, retry in %ds", e.Limit, e.RetryAfterSec)
}
