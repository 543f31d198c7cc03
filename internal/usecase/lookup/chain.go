package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/holdex/internal/domain"
	"github.com/kailas-cloud/holdex/internal/domain/level"
	"github.com/kailas-cloud/holdex/internal/domain/quota"
	"github.com/kailas-cloud/holdex/internal/logger"
	"github.com/kailas-cloud/holdex/internal/metrics"
	"github.com/kailas-cloud/holdex/internal/usecase/guard"
)

// Source names the tier that produced a result.
type Source string

// Source constants.
const (
	SourceCache  Source = "cache"
	SourceLive   Source = "live"
	SourceStatic Source = "static"
)

// Result is a served lookup.
type Result struct {
	Value  any
	Source Source
	Level  level.Level
}

// DefaultFetchTimeout bounds a shared live call once it no longer follows
// any single caller's context.
const DefaultFetchTimeout = 10 * time.Second

// entry is what the chain caches: the shaped value and the level it was
// shaped at.
type entry struct {
	Value any         `json:"value"`
	Level level.Level `json:"level"`
}

// unpack reads a cached entry. The remote layer hands it back as a decoded
// JSON object; values cached without a level report current.
func unpack(v any, current level.Level) (any, level.Level) {
	switch e := v.(type) {
	case entry:
		return e.Value, e.Level
	case map[string]any:
		name, ok := e["level"].(string)
		if !ok {
			break
		}
		lvl, err := level.Parse(name)
		if err != nil {
			break
		}
		if val, ok := e["value"]; ok && len(e) == 2 {
			return val, lvl
		}
	}
	return v, current
}

// Fetcher reads live data. Returning domain.ErrNotFound means an empty
// result, not an outage.
type Fetcher func(ctx context.Context) (any, error)

// Cache is the tiered cache consumed by the chain.
type Cache interface {
	Get(ctx context.Context, key string) (any, bool)
	Set(ctx context.Context, key string, value any, ttl time.Duration)
}

// Static is the last-resort snapshot store.
type Static interface {
	Load(key string) (any, bool)
	Save(key string, value any) bool
}

// Degrader shapes payloads by service level.
type Degrader interface {
	Degrade(resp any, lvl level.Level) any
}

// Resolver reports the global service level.
type Resolver interface {
	Resolve() level.Level
}

// Deps are the chain's collaborators. Static may be nil.
type Deps struct {
	Limiter  guard.Limiter
	Cache    Cache
	Static   Static
	Degrader Degrader
	Resolver Resolver
	Logger   *zap.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithStaticWriteThrough saves every live result as its static snapshot.
func WithStaticWriteThrough(on bool) Option {
	return func(c *Chain) { c.writeThrough = on }
}

// WithFetchTimeout bounds each shared live call.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Chain) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// Chain serves one lookup operation through cache, live source and static
// snapshots, under the api_requests and database_queries quotas.
type Chain struct {
	operation    string
	cache        Cache
	static       Static
	degrader     Degrader
	resolver     Resolver
	api          *guard.Guard[Result]
	live         *guard.Guard[any]
	group        singleflight.Group
	writeThrough bool
	fetchTimeout time.Duration
	logger       *zap.Logger
}

// New creates a Chain for operation (used as a metrics label).
func New(operation string, d Deps, opts ...Option) *Chain {
	c := &Chain{
		operation: operation,
		cache:     d.Cache,
		static:    d.Static,
		degrader:  d.Degrader,
		resolver:  d.Resolver,
		api:       guard.New[Result](d.Limiter, quota.ServiceAPI),
		// Over quota the live side refuses so a keyed static snapshot wins
		// over another key's remembered value.
		live:         guard.New[any](d.Limiter, quota.ServiceDatabase, guard.WithoutMemory()),
		fetchTimeout: DefaultFetchTimeout,
		logger:       d.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup serves key. Errors are domain.ErrNotFound, a
// *domain.QuotaExceededError or domain.ErrUnavailable.
func (c *Chain) Lookup(ctx context.Context, key string, fetch Fetcher) (Result, error) {
	res, err := c.api.Do(ctx, func(ctx context.Context) (Result, error) {
		return c.lookup(ctx, key, fetch)
	})
	if err == nil {
		metrics.LookupSourceTotal.WithLabelValues(c.operation, string(res.Source)).Inc()
	}
	return res, err
}

func (c *Chain) lookup(ctx context.Context, key string, fetch Fetcher) (Result, error) {
	lvl := c.resolver.Resolve()
	metrics.ServiceLevel.Set(float64(lvl))

	if v, ok := c.cache.Get(ctx, key); ok {
		val, shapedAt := unpack(v, lvl)
		return Result{Value: val, Source: SourceCache, Level: shapedAt}, nil
	}

	// Concurrent misses for one key share a single live call. It runs
	// detached so the first caller going away does not fail the rest.
	v, err, _ := c.group.Do(key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.miss(sctx, key, fetch, lvl)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil //nolint:forcetypeassert // miss only returns Result
}

func (c *Chain) miss(ctx context.Context, key string, fetch Fetcher, lvl level.Level) (Result, error) {
	log := logger.FromContext(ctx)

	val, err := c.live.Do(ctx, func(ctx context.Context) (any, error) { return fetch(ctx) })
	if err == nil {
		shaped := c.degrader.Degrade(val, lvl)
		c.cache.Set(ctx, key, entry{Value: shaped, Level: lvl}, lvl.CacheTTL())
		if c.writeThrough && c.static != nil {
			c.static.Save(key, val)
		}
		return Result{Value: shaped, Source: SourceLive, Level: lvl}, nil
	}

	if errors.Is(err, domain.ErrNotFound) {
		return Result{}, err
	}

	overQuota := errors.Is(err, domain.ErrQuotaExceeded)
	if !overQuota {
		log.Warn("Live lookup failed, trying static snapshot",
			zap.String("operation", c.operation), zap.String("key", key), zap.Error(err))
	}

	if c.static != nil {
		if v, ok := c.static.Load(key); ok {
			return Result{Value: v, Source: SourceStatic, Level: lvl}, nil
		}
	}

	if overQuota {
		return Result{}, err
	}
	return Result{}, fmt.Errorf("%s %q: %w", c.operation, key, domain.ErrUnavailable)
}
