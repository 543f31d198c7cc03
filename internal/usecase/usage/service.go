package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/holdex/internal/domain/level"
	"github.com/kailas-cloud/holdex/internal/domain/quota"
	domusage "github.com/kailas-cloud/holdex/internal/domain/usage"
	"github.com/kailas-cloud/holdex/internal/domain/usage/budget"
	"github.com/kailas-cloud/holdex/internal/domain/usage/cache"
)

// Warning thresholds for the usage report.
const (
	warnAbovePercent     = 80
	criticalAbovePercent = 90
)

// reportSource is what the report needs from the tracker (ISP).
type reportSource interface {
	usageReader
	Current(service string) int64
	Now() time.Time
}

// CacheStatsProvider exposes tiered cache statistics.
type CacheStatsProvider interface {
	Stats() cache.Stats
}

// LevelResolver resolves the global service level.
type LevelResolver interface {
	Resolve() level.Level
}

// Service builds usage reports.
type Service struct {
	src      reportSource
	resolver LevelResolver
	cache    CacheStatsProvider
}

// New creates a Service. cache can be nil (no tiered cache wired).
func New(src reportSource, resolver LevelResolver, cache CacheStatsProvider) *Service {
	return &Service{src: src, resolver: resolver, cache: cache}
}

// GetReport builds a usage report for every configured quota.
func (s *Service) GetReport(_ context.Context) domusage.Report {
	now := s.src.Now()
	quotas := s.src.Quotas()

	budgets := make([]budget.Budget, 0, len(quotas))
	var warnings []domusage.Warning

	for _, q := range quotas {
		pct := s.src.UsagePercentage(q.Service())
		resetsAt := quota.PeriodEnd(q.Metric(), quota.PeriodStart(q.Metric(), now))
		budgets = append(budgets, budget.New(
			q.Service(), q.Metric(), s.src.Current(q.Service()), q.Limit(), pct, resetsAt.UnixMilli(),
		))

		if pct > warnAbovePercent {
			sev := domusage.SeverityWarning
			if pct > criticalAbovePercent {
				sev = domusage.SeverityCritical
			}
			warnings = append(warnings, domusage.Warning{
				Service:  q.Service(),
				Message:  fmt.Sprintf("%s at %.1f%% of limit", q.Service(), pct),
				Severity: sev,
			})
		}
	}

	var stats cache.Stats
	if s.cache != nil {
		stats = s.cache.Stats()
	}

	return domusage.NewReport(budgets, stats, s.resolver.Resolve(), warnings)
}
