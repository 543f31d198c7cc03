package usage

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/domain/quota"
	"github.com/kailas-cloud/holdex/internal/metrics"
	"github.com/kailas-cloud/holdex/internal/repository/budget"
)

// CounterStore is the persistence interface for usage counters.
// Implementations must tolerate repeated IncrBy calls for the same key.
type CounterStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// counterKey identifies one live counter: a service's metric within one period.
type counterKey struct {
	service     string
	metric      quota.Metric
	periodStart int64 // unix seconds of the UTC period start
}

// alertKey identifies an alert already delivered today.
type alertKey struct {
	service   string
	day       int64
	threshold float64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithNotifier overrides the alert sink (default logs a warning).
func WithNotifier(n Notifier) Option {
	return func(t *Tracker) { t.notifier = n }
}

// Tracker counts requests per service against configured quotas.
// Counters live in memory; a new period starts at zero without any reset call.
// An attached CounterStore receives write-behind increments.
type Tracker struct {
	quotas   map[string]quota.Spec
	services []string
	now      func() time.Time
	notifier Notifier
	store    CounterStore
	logger   *zap.Logger

	mu       sync.RWMutex
	counters map[counterKey]*atomic.Int64

	alertMu sync.Mutex
	alerts  map[alertKey]struct{}
}

// NewTracker creates a tracker for the given quotas. A later spec for the same
// service replaces an earlier one.
func NewTracker(specs []quota.Spec, logger *zap.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		quotas:   make(map[string]quota.Spec, len(specs)),
		now:      time.Now,
		logger:   logger,
		counters: make(map[counterKey]*atomic.Int64),
		alerts:   make(map[alertKey]struct{}),
	}
	for _, s := range specs {
		t.quotas[s.Service()] = s
	}
	for name := range t.quotas {
		t.services = append(t.services, name)
	}
	sort.Strings(t.services)

	for _, opt := range opts {
		opt(t)
	}
	if t.notifier == nil {
		t.notifier = NewLogNotifier(logger)
	}
	return t
}

// WithStore attaches a persistence store and loads current-period counters.
func (t *Tracker) WithStore(ctx context.Context, store CounterStore) *Tracker {
	t.store = store
	t.loadFromStore(ctx)
	return t
}

func (t *Tracker) loadFromStore(ctx context.Context) {
	now := t.now()
	for _, name := range t.services {
		spec := t.quotas[name]
		start := quota.PeriodStart(spec.Metric(), now)
		key := budget.Key(name, spec.Metric(), start)

		val, err := t.store.Get(ctx, key)
		if err != nil {
			t.logger.Warn("Failed to load usage counter from store",
				zap.String("service", name), zap.Error(err))
			continue
		}
		t.counter(name, spec.Metric(), now).Store(val)

		t.logger.Info("Usage counter loaded from store",
			zap.String("service", name),
			zap.String("metric", string(spec.Metric())),
			zap.Int64("count", val),
		)
	}
}

// Now returns the tracker's current time.
func (t *Tracker) Now() time.Time { return t.now() }

// Quotas returns configured quotas ordered by service name.
func (t *Tracker) Quotas() []quota.Spec {
	out := make([]quota.Spec, 0, len(t.services))
	for _, name := range t.services {
		out = append(out, t.quotas[name])
	}
	return out
}

// Quota returns the quota configured for service.
func (t *Tracker) Quota(service string) (quota.Spec, bool) {
	s, ok := t.quotas[service]
	return s, ok
}

// Increment adds one to the service's counter for the current period and
// returns the new count.
func (t *Tracker) Increment(service string, metric quota.Metric) int64 {
	now := t.now()
	v := t.counter(service, metric, now).Add(1)
	t.afterIncrement(service, metric, v, now)
	return v
}

// Acquire increments the counter only while it is below the limit.
// Concurrent callers never push the count past the limit. Services without a
// quota for metric are always granted.
func (t *Tracker) Acquire(service string, metric quota.Metric) (int64, bool) {
	spec, ok := t.quotas[service]
	if !ok || spec.Metric() != metric {
		return t.Increment(service, metric), true
	}

	now := t.now()
	c := t.counter(service, metric, now)
	for {
		cur := c.Load()
		if cur >= spec.Limit() {
			return cur, false
		}
		if c.CompareAndSwap(cur, cur+1) {
			t.afterIncrement(service, metric, cur+1, now)
			return cur + 1, true
		}
	}
}

// UnderLimit reports whether the current count is below the limit.
// A service with no quota for metric is always under limit.
func (t *Tracker) UnderLimit(service string, metric quota.Metric) bool {
	spec, ok := t.quotas[service]
	if !ok || spec.Metric() != metric {
		return true
	}
	return t.load(service, metric, t.now()) < spec.Limit()
}

// Current returns the service's count for its configured metric in the
// current period.
func (t *Tracker) Current(service string) int64 {
	spec, ok := t.quotas[service]
	if !ok {
		return 0
	}
	return t.load(service, spec.Metric(), t.now())
}

// UsagePercentage returns count/limit*100 for the current period, 0 when the
// service has no quota. May exceed 100.
func (t *Tracker) UsagePercentage(service string) float64 {
	spec, ok := t.quotas[service]
	if !ok {
		return 0
	}
	return percentage(t.load(service, spec.Metric(), t.now()), spec.Limit())
}

func percentage(count, limit int64) float64 {
	if limit <= 0 {
		return 0
	}
	return float64(count) / float64(limit) * 100
}

// load reads a counter without creating it.
func (t *Tracker) load(service string, metric quota.Metric, now time.Time) int64 {
	key := counterKey{service: service, metric: metric, periodStart: quota.PeriodStart(metric, now).Unix()}
	t.mu.RLock()
	c := t.counters[key]
	t.mu.RUnlock()
	if c == nil {
		return 0
	}
	return c.Load()
}

// counter returns the live counter for the period containing now, creating it
// and dropping the service's older periods on first use.
func (t *Tracker) counter(service string, metric quota.Metric, now time.Time) *atomic.Int64 {
	key := counterKey{service: service, metric: metric, periodStart: quota.PeriodStart(metric, now).Unix()}

	t.mu.RLock()
	c := t.counters[key]
	t.mu.RUnlock()
	if c != nil {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c = t.counters[key]; c != nil {
		return c
	}
	for k := range t.counters {
		if k.service == service && k.metric == metric && k.periodStart < key.periodStart {
			delete(t.counters, k)
		}
	}
	c = new(atomic.Int64)
	t.counters[key] = c
	return c
}

func (t *Tracker) afterIncrement(service string, metric quota.Metric, count int64, now time.Time) {
	metrics.QuotaUsage.WithLabelValues(service, string(metric)).Set(float64(count))
	t.persist(service, metric, now)
	t.checkAlert(service, metric, count, now)
}

// persist writes the increment behind to the store. Failures are logged only.
func (t *Tracker) persist(service string, metric quota.Metric, now time.Time) {
	if t.store == nil {
		return
	}
	key := budget.Key(service, metric, quota.PeriodStart(metric, now))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := t.store.IncrBy(ctx, key, 1); err != nil {
		t.logger.Warn("Failed to persist usage counter", zap.String("key", key), zap.Error(err))
	}
}

// checkAlert notifies once per (service, UTC day, threshold) when the
// warning threshold is reached.
func (t *Tracker) checkAlert(service string, metric quota.Metric, count int64, now time.Time) {
	spec, ok := t.quotas[service]
	if !ok || spec.Metric() != metric {
		return
	}
	pct := percentage(count, spec.Limit())
	if pct < spec.WarningPercent() {
		return
	}

	day := quota.Day(now)
	key := alertKey{service: service, day: day.Unix(), threshold: spec.WarningPercent()}

	t.alertMu.Lock()
	if _, seen := t.alerts[key]; seen {
		t.alertMu.Unlock()
		return
	}
	for k := range t.alerts {
		if k.day < key.day {
			delete(t.alerts, k)
		}
	}
	t.alerts[key] = struct{}{}
	t.alertMu.Unlock()

	metrics.QuotaAlertsTotal.WithLabelValues(service).Inc()
	t.notifier.Notify(context.Background(), Alert{
		Service:    service,
		Day:        day,
		Threshold:  spec.WarningPercent(),
		Percentage: pct,
		Count:      count,
		Limit:      spec.Limit(),
	})
}
