package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals an empty lookup result.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a malformed client query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrQuotaExceeded signals an exhausted daily or monthly quota.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrUnavailable signals that no tier could answer a lookup.
	ErrUnavailable = errors.New("service temporarily unavailable")
	// ErrRemoteUnavailable signals a failed or timed out remote call.
	ErrRemoteUnavailable = errors.New("remote unavailable")
	// ErrMalformedSnapshot signals an unreadable static fallback file.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// QuotaExceededError wraps ErrQuotaExceeded with the exhausted service name.
type QuotaExceededError struct {
	Service string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: %s", ErrQuotaExceeded.Error(), e.Service)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// NewQuotaExceeded creates a quota error for the given service.
func NewQuotaExceeded(service string) error {
	return &QuotaExceededError{Service: service}
}
