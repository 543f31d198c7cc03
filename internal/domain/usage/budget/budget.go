package budget

import (
	"github.com/kailas-cloud/holdex/internal/domain/level"
	"github.com/kailas-cloud/holdex/internal/domain/quota"
)

// Budget is a point-in-time view of one service's quota consumption.
type Budget struct {
	service    string
	metric     quota.Metric
	current    int64
	limit      int64
	percentage float64
	resetsAt   int64 // unix millis, converted to ISO 8601 at transport layer
}

// New creates a Budget snapshot.
func New(service string, metric quota.Metric, current, limit int64, percentage float64, resetsAt int64) Budget {
	return Budget{
		service:    service,
		metric:     metric,
		current:    current,
		limit:      limit,
		percentage: percentage,
		resetsAt:   resetsAt,
	}
}

// Service returns the service name.
func (b Budget) Service() string { return b.service }

// Metric returns the limited metric.
func (b Budget) Metric() quota.Metric { return b.metric }

// Current returns usage in the current period.
func (b Budget) Current() int64 { return b.current }

// Limit returns the per-period cap.
func (b Budget) Limit() int64 { return b.limit }

// Remaining returns what is left in the period, never negative.
func (b Budget) Remaining() int64 {
	if r := b.limit - b.current; r > 0 {
		return r
	}
	return 0
}

// Percentage returns current/limit*100.
func (b Budget) Percentage() float64 { return b.percentage }

// Status maps the percentage onto the status ladder.
func (b Budget) Status() quota.Status { return quota.StatusFor(b.percentage) }

// IsExhausted reports whether the quota is spent.
func (b Budget) IsExhausted() bool { return b.limit > 0 && b.current >= b.limit }

// ResetsAt returns the period end (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }

// Level returns the service level this budget alone would imply.
func (b Budget) Level() level.Level { return level.FromPercentage(b.percentage) }
