package metrics

import "github.com/prometheus/client_golang/prometheus"

// Usage-protection Prometheus metrics.
var (
	QuotaUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "holdex",
			Name:      "quota_usage_count",
			Help:      "Usage count for the current quota period",
		},
		[]string{"service", "metric"},
	)

	QuotaAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "holdex",
			Name:      "quota_alerts_total",
			Help:      "Quota warning alerts emitted",
		},
		[]string{"service"},
	)

	QuotaRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "holdex",
			Name:      "quota_rejections_total",
			Help:      "Guarded calls blocked by quota",
		},
		[]string{"service", "outcome"}, // "remembered" / "refused"
	)

	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "holdex",
			Name:      "cache_lookups_total",
			Help:      "Tiered cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "holdex",
			Name:      "cache_memory_entries",
			Help:      "Entries held by the in-process cache layer",
		},
	)

	LookupSourceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "holdex",
			Name:      "lookup_source_total",
			Help:      "Lookup results by operation and serving source",
		},
		[]string{"operation", "source"},
	)

	ServiceLevel = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "holdex",
			Name:      "service_level",
			Help:      "Global service level (0 normal, 1 reduced, 2 minimal, 3 static_only)",
		},
	)
)

var protectionMetricsRegistered bool

// RegisterProtectionMetrics registers usage-protection metrics. Must be called once from main.
func RegisterProtectionMetrics() {
	if protectionMetricsRegistered {
		return
	}
	prometheus.MustRegister(QuotaUsage)
	prometheus.MustRegister(QuotaAlertsTotal)
	prometheus.MustRegister(QuotaRejectionsTotal)
	prometheus.MustRegister(CacheLookupsTotal)
	prometheus.MustRegister(CacheEntries)
	prometheus.MustRegister(LookupSourceTotal)
	prometheus.MustRegister(ServiceLevel)
	protectionMetricsRegistered = true
}
