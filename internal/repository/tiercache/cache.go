package tiercache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/db"
	"github.com/kailas-cloud/holdex/internal/domain"
	"github.com/kailas-cloud/holdex/internal/domain/usage/cache"
	"github.com/kailas-cloud/holdex/internal/metrics"
)

// Defaults.
const (
	DefaultRefreshWindow = 5 * time.Minute
	DefaultHighWater     = 1000
	DefaultRemoteTimeout = 500 * time.Millisecond
	DefaultKeyPrefix     = domain.KeyPrefix + "cache:"
)

// remote is the consumer interface for the remote layer (ISP).
type remote interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// RemoteBudget gates every remote call against a per-day request quota.
type RemoteBudget interface {
	Allow() bool
	Spend()
	Used() int64
	Limit() int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithRemote attaches the remote layer and its request budget.
// A nil budget means unlimited.
func WithRemote(r remote, b RemoteBudget) Option {
	return func(c *Cache) {
		c.remote = r
		c.budget = b
	}
}

// WithRefreshWindow sets how long remote hits live in the fast layer.
func WithRefreshWindow(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.refresh = d
		}
	}
}

// WithHighWater sets the fast-layer size that triggers bulk expiry cleanup.
func WithHighWater(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.highWater = n
		}
	}
}

// WithRemoteTimeout bounds each remote call.
func WithRemoteTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithKeyPrefix namespaces remote keys.
func WithKeyPrefix(p string) Option {
	return func(c *Cache) { c.prefix = p }
}

// Cache is a two-tier cache: an in-process TTL layer in front of a
// quota-limited remote KV store. Remote failures and an exhausted budget
// make the remote layer behave as absent; they never reach the caller.
type Cache struct {
	fast      *ttlcache.Cache[string, any]
	remote    remote
	budget    RemoteBudget
	prefix    string
	refresh   time.Duration
	timeout   time.Duration
	highWater int
	logger    *zap.Logger
}

// New creates a Cache. Without WithRemote only the fast layer is used.
func New(logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		// No Start(): expired items are dropped lazily and by bulk cleanup.
		fast:      ttlcache.New[string, any](ttlcache.WithDisableTouchOnHit[string, any]()),
		prefix:    DefaultKeyPrefix,
		refresh:   DefaultRefreshWindow,
		timeout:   DefaultRemoteTimeout,
		highWater: DefaultHighWater,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key.
func (c *Cache) Get(ctx context.Context, key string) (any, bool) {
	if item := c.fast.Get(key); item != nil {
		metrics.CacheLookupsTotal.WithLabelValues("memory", "hit").Inc()
		return item.Value(), true
	}
	metrics.CacheLookupsTotal.WithLabelValues("memory", "miss").Inc()

	if !c.remoteAllowed() {
		if c.remote != nil {
			metrics.CacheLookupsTotal.WithLabelValues("remote", "over_budget").Inc()
		}
		return nil, false
	}

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.remote.Get(rctx, c.prefix+key)
	c.spend()
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			metrics.CacheLookupsTotal.WithLabelValues("remote", "miss").Inc()
		} else {
			metrics.CacheLookupsTotal.WithLabelValues("remote", "error").Inc()
			c.logger.Debug("Remote cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	// Numbers stay json.Number so large integers survive the round trip.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("remote", "error").Inc()
		c.logger.Debug("Remote cache value undecodable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	metrics.CacheLookupsTotal.WithLabelValues("remote", "hit").Inc()

	c.fast.Set(key, v, c.refresh)
	c.afterWrite()
	return v, true
}

// Set stores value in the fast layer for ttl and, budget permitting, in the
// remote layer as JSON. ttl <= 0 uses the refresh window.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.refresh
	}
	c.fast.Set(key, value, ttl)
	c.afterWrite()

	if !c.remoteAllowed() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Cache value not serializable, kept in memory only", zap.String("key", key), zap.Error(err))
		return
	}

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err = c.remote.SetWithTTL(rctx, c.prefix+key, data, ttl)
	c.spend()
	if err != nil {
		c.logger.Debug("Remote cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes key from the fast layer and, best effort, from the remote layer.
func (c *Cache) Delete(ctx context.Context, key string) {
	c.fast.Delete(key)
	metrics.CacheEntries.Set(float64(c.fast.Len()))

	if !c.remoteAllowed() {
		return
	}

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.remote.Del(rctx, c.prefix+key)
	c.spend()
	if err != nil {
		c.logger.Debug("Remote cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Len returns the number of fast-layer entries, expired ones included.
func (c *Cache) Len() int { return c.fast.Len() }

// Stats reports remote budget and fast-layer size.
func (c *Cache) Stats() cache.Stats {
	s := cache.Stats{
		RemoteAvailable: c.remote != nil,
		MemoryEntries:   c.fast.Len(),
	}
	if c.budget != nil {
		s.DailyRequests = c.budget.Used()
		s.DailyLimit = c.budget.Limit()
	}
	return s
}

func (c *Cache) remoteAllowed() bool {
	if c.remote == nil {
		return false
	}
	return c.budget == nil || c.budget.Allow()
}

func (c *Cache) spend() {
	if c.budget != nil {
		c.budget.Spend()
	}
}

// afterWrite runs bulk expiry once the fast layer grows past the high-water mark.
func (c *Cache) afterWrite() {
	if c.fast.Len() > c.highWater {
		c.fast.DeleteExpired()
	}
	metrics.CacheEntries.Set(float64(c.fast.Len()))
}
