package usage

import "github.com/kailas-cloud/holdex/internal/domain/quota"

// ServiceBudget exposes one daily_requests quota as a spend-as-you-go budget
// for components that gate their own calls (the remote cache layer).
type ServiceBudget struct {
	tracker *Tracker
	service string
}

// Budget returns the spend budget for service.
func (t *Tracker) Budget(service string) *ServiceBudget {
	return &ServiceBudget{tracker: t, service: service}
}

// Allow reports whether another call fits in today's quota.
func (b *ServiceBudget) Allow() bool {
	return b.tracker.UnderLimit(b.service, quota.DailyRequests)
}

// Spend records one call.
func (b *ServiceBudget) Spend() {
	b.tracker.Increment(b.service, quota.DailyRequests)
}

// Used returns calls made today.
func (b *ServiceBudget) Used() int64 {
	return b.tracker.Current(b.service)
}

// Limit returns the daily cap, 0 when unlimited.
func (b *ServiceBudget) Limit() int64 {
	if q, ok := b.tracker.Quota(b.service); ok {
		return q.Limit()
	}
	return 0
}
