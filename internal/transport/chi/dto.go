package chi

import (
	"time"

	domusage "github.com/kailas-cloud/holdex/internal/domain/usage"
	healthuc "github.com/kailas-cloud/holdex/internal/usecase/health"
)

// HealthResponse is the /health body.
type HealthResponse struct {
	Status  string                          `json:"status"`
	Service string                          `json:"service"`
	Checks  map[string]healthuc.CheckResult `json:"checks"`
}

// LimitStatus is one service's quota usage.
type LimitStatus struct {
	Current      int64     `json:"current"`
	Limit        int64     `json:"limit"`
	Remaining    int64     `json:"remaining"`
	Metric       string    `json:"metric"`
	Percentage   float64   `json:"percentage"`
	Status       string    `json:"status"`
	ServiceLevel string    `json:"service_level"`
	ResetsAt     time.Time `json:"resets_at"`
}

// CacheStatus describes the tiered cache.
type CacheStatus struct {
	RemoteAvailable bool    `json:"remote_available"`
	DailyRequests   int64   `json:"daily_requests"`
	DailyLimit      int64   `json:"daily_limit"`
	Percentage      float64 `json:"percentage"`
	MemoryEntries   int     `json:"memory_entries"`
	UsingFallback   bool    `json:"using_fallback"`
}

// UsageWarning flags a service close to its limit.
type UsageWarning struct {
	Service  string `json:"service"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// UsageResponse is the /api/usage body.
type UsageResponse struct {
	Limits       map[string]LimitStatus `json:"limits"`
	Cache        CacheStatus            `json:"cache"`
	ServiceLevel string                 `json:"service_level"`
	Warnings     []UsageWarning         `json:"warnings"`
}

func usageToResponse(r *domusage.Report) UsageResponse {
	resp := UsageResponse{
		Limits:       make(map[string]LimitStatus, len(r.Budgets())),
		ServiceLevel: r.Level().String(),
		Warnings:     []UsageWarning{},
	}
	for _, b := range r.Budgets() {
		resp.Limits[b.Service()] = LimitStatus{
			Current:      b.Current(),
			Limit:        b.Limit(),
			Remaining:    b.Remaining(),
			Metric:       string(b.Metric()),
			Percentage:   round1(b.Percentage()),
			Status:       string(b.Status()),
			ServiceLevel: b.Level().String(),
			ResetsAt:     time.UnixMilli(b.ResetsAt()).UTC(),
		}
	}

	c := r.Cache()
	resp.Cache = CacheStatus{
		RemoteAvailable: c.RemoteAvailable,
		DailyRequests:   c.DailyRequests,
		DailyLimit:      c.DailyLimit,
		Percentage:      round1(c.UsagePercentage()),
		MemoryEntries:   c.MemoryEntries,
		UsingFallback:   c.UsingFallback(),
	}

	for _, w := range r.Warnings() {
		resp.Warnings = append(resp.Warnings, UsageWarning{
			Service:  w.Service,
			Message:  w.Message,
			Severity: string(w.Severity),
		})
	}
	return resp
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
