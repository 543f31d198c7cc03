package guard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/domain"
	"github.com/kailas-cloud/holdex/internal/domain/quota"
	"github.com/kailas-cloud/holdex/internal/logger"
	"github.com/kailas-cloud/holdex/internal/metrics"
)

// Limiter is the quota gate a Guard consults (ISP over usage.Tracker).
type Limiter interface {
	Acquire(service string, metric quota.Metric) (int64, bool)
}

// Option configures a Guard.
type Option func(*options)

type options struct {
	metric   quota.Metric
	noMemory bool
}

// WithMetric overrides the limited metric (default daily_requests).
func WithMetric(m quota.Metric) Option {
	return func(o *options) { o.metric = m }
}

// WithoutMemory makes the guard refuse over quota instead of serving the last
// result. Used where a better keyed fallback sits behind the guard.
func WithoutMemory() Option {
	return func(o *options) { o.noMemory = true }
}

// Guard gates one quota-bound operation. Once the quota is spent it serves the
// last successful result instead of calling through.
//
// The remembered result belongs to the Guard, not to an input: every caller
// sharing a Guard receives the same value while the quota is exhausted.
type Guard[T any] struct {
	limiter  Limiter
	service  string
	metric   quota.Metric
	noMemory bool

	mu       sync.RWMutex
	last     T
	haveLast bool
}

// New creates a Guard for service.
func New[T any](limiter Limiter, service string, opts ...Option) *Guard[T] {
	o := options{metric: quota.DailyRequests}
	for _, opt := range opts {
		opt(&o)
	}
	return &Guard[T]{limiter: limiter, service: service, metric: o.metric, noMemory: o.noMemory}
}

// Service returns the guarded service name.
func (g *Guard[T]) Service() string { return g.service }

// Do runs fn if the quota allows it. Over quota it returns the remembered
// result, or a *domain.QuotaExceededError when nothing was remembered yet.
// Errors from fn are returned as-is and never remembered.
func (g *Guard[T]) Do(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	if _, ok := g.limiter.Acquire(g.service, g.metric); !ok {
		return g.refuse(ctx)
	}

	v, err := fn(ctx)
	if err != nil || g.noMemory {
		return v, err
	}

	g.mu.Lock()
	g.last, g.haveLast = v, true
	g.mu.Unlock()

	return v, nil
}

func (g *Guard[T]) refuse(ctx context.Context) (T, error) {
	g.mu.RLock()
	last, ok := g.last, g.haveLast
	g.mu.RUnlock()

	if ok {
		metrics.QuotaRejectionsTotal.WithLabelValues(g.service, "remembered").Inc()
		logger.FromContext(ctx).Debug("Quota exhausted, serving last result", zap.String("service", g.service))
		return last, nil
	}

	metrics.QuotaRejectionsTotal.WithLabelValues(g.service, "refused").Inc()
	logger.FromContext(ctx).Warn("Quota exhausted", zap.String("service", g.service))
	var zero T
	return zero, domain.NewQuotaExceeded(g.service)
}
