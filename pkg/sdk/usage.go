package holdex

import (
	"context"
	"time"
)

// UsageReport is a snapshot of quota consumption.
type UsageReport struct {
	Level    string
	Quotas   []QuotaUsage
	Cache    CacheUsage
	Warnings []string
}

// QuotaUsage is one service's consumption in the current period.
type QuotaUsage struct {
	Service    string
	Metric     string
	Current    int64
	Limit      int64
	Remaining  int64
	Percentage float64
	Status     string
	ResetsAt   time.Time
}

// CacheUsage describes the tiered cache.
type CacheUsage struct {
	RemoteAvailable bool
	DailyRequests   int64
	DailyLimit      int64
	MemoryEntries   int
	UsingFallback   bool
}

// Usage returns the current quota report.
// Observer always records success: the report is built in memory.
func (c *Client) Usage(ctx context.Context) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	report := c.usageSvc.GetReport(ctx)
	stats := report.Cache()

	out := UsageReport{
		Level: report.Level().String(),
		Cache: CacheUsage{
			RemoteAvailable: stats.RemoteAvailable,
			DailyRequests:   stats.DailyRequests,
			DailyLimit:      stats.DailyLimit,
			MemoryEntries:   stats.MemoryEntries,
			UsingFallback:   stats.UsingFallback(),
		},
	}
	for _, b := range report.Budgets() {
		out.Quotas = append(out.Quotas, QuotaUsage{
			Service:    b.Service(),
			Metric:     string(b.Metric()),
			Current:    b.Current(),
			Limit:      b.Limit(),
			Remaining:  b.Remaining(),
			Percentage: b.Percentage(),
			Status:     string(b.Status()),
			ResetsAt:   time.UnixMilli(b.ResetsAt()).UTC(),
		})
	}
	for _, w := range report.Warnings() {
		out.Warnings = append(out.Warnings, w.Message)
	}
	return out
}
