package holdex

import "github.com/kailas-cloud/holdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery  = domain.ErrInvalidQuery
	ErrQuotaExceeded = domain.ErrQuotaExceeded
	ErrUnavailable   = domain.ErrUnavailable
)

// QuotaExceededError names the exhausted service. Use errors.As() to read it.
type QuotaExceededError = domain.QuotaExceededError
