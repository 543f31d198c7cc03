package holdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type quotaOverride struct {
	service        string
	metric         string
	limit          int64
	warningPercent float64
}

type clientConfig struct {
	sqlitePath string

	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	fallbackDir  string
	writeThrough bool
	quotas       []quotaOverride

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithSQLite sets the holdings database path. Required.
func WithSQLite(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.sqlitePath = path
	})
}

// WithValkey adds a Valkey remote cache layer.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis adds a Redis remote cache layer.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithFallbackDir enables static snapshots from dir. When writeThrough is
// set every live result is also saved there.
func WithFallbackDir(dir string, writeThrough bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.fallbackDir = dir
		c.writeThrough = writeThrough
	})
}

// WithQuota overrides one service's quota. metric is "daily_requests" or
// "monthly_hours". Services without an override keep the free-tier defaults.
func WithQuota(service, metric string, limit int64, warningPercent float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.quotas = append(c.quotas, quotaOverride{
			service:        service,
			metric:         metric,
			limit:          limit,
			warningPercent: warningPercent,
		})
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
