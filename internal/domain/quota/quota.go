package quota

import (
	"fmt"
	"time"
)

// Metric is the kind of quantity a quota limits.
type Metric string

// Metric constants.
const (
	DailyRequests Metric = "daily_requests"
	MonthlyHours  Metric = "monthly_hours"
)

// Built-in service names.
const (
	ServiceRemoteCache = "remote_cache"
	ServiceHosting     = "hosting"
	ServiceAPI         = "api_requests"
	ServiceDatabase    = "database_queries"
)

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	return m == DailyRequests || m == MonthlyHours
}

// Spec is a configured quota for a named external service.
type Spec struct {
	service        string
	metric         Metric
	limit          int64
	warningPercent float64
}

// New creates a quota spec.
func New(service string, metric Metric, limit int64, warningPercent float64) (Spec, error) {
	if service == "" {
		return Spec{}, fmt.Errorf("quota: service name is required")
	}
	if !metric.Valid() {
		return Spec{}, fmt.Errorf("quota %s: unknown metric %q", service, metric)
	}
	if limit <= 0 {
		return Spec{}, fmt.Errorf("quota %s: limit must be positive, got %d", service, limit)
	}
	if warningPercent <= 0 || warningPercent > 100 {
		return Spec{}, fmt.Errorf("quota %s: warning_percent must be in (0,100], got %v", service, warningPercent)
	}
	return Spec{service: service, metric: metric, limit: limit, warningPercent: warningPercent}, nil
}

// MustNew is New that panics on error. Intended for static tables and tests.
func MustNew(service string, metric Metric, limit int64, warningPercent float64) Spec {
	s, err := New(service, metric, limit, warningPercent)
	if err != nil {
		panic(err)
	}
	return s
}

// Service returns the service name.
func (s Spec) Service() string { return s.service }

// Metric returns the limited metric.
func (s Spec) Metric() Metric { return s.metric }

// Limit returns the per-period cap.
func (s Spec) Limit() int64 { return s.limit }

// WarningPercent returns the alert threshold.
func (s Spec) WarningPercent() float64 { return s.warningPercent }

// PeriodStart returns the UTC start of the period containing t.
// Daily metrics reset at midnight, monthly metrics on the 1st.
func PeriodStart(m Metric, t time.Time) time.Time {
	t = t.UTC()
	switch m {
	case MonthlyHours:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// PeriodEnd returns the UTC end (exclusive) of the period starting at start.
func PeriodEnd(m Metric, start time.Time) time.Time {
	if m == MonthlyHours {
		return start.AddDate(0, 1, 0)
	}
	return start.AddDate(0, 0, 1)
}

// Day returns the UTC calendar day containing t.
func Day(t time.Time) time.Time {
	return PeriodStart(DailyRequests, t)
}

// Defaults returns the free-tier quota table used when none is configured.
func Defaults() []Spec {
	return []Spec{
		MustNew(ServiceRemoteCache, DailyRequests, 9000, 80),
		MustNew(ServiceHosting, MonthlyHours, 750, 85),
		MustNew(ServiceAPI, DailyRequests, 50000, 75),
		MustNew(ServiceDatabase, DailyRequests, 5000, 70),
	}
}
