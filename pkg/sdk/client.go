package holdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/holdex/internal/db/redis"
	"github.com/kailas-cloud/holdex/internal/domain"
	"github.com/kailas-cloud/holdex/internal/domain/quota"
	domusage "github.com/kailas-cloud/holdex/internal/domain/usage"
	"github.com/kailas-cloud/holdex/internal/repository/fallback"
	holdingsrepo "github.com/kailas-cloud/holdex/internal/repository/holdings"
	"github.com/kailas-cloud/holdex/internal/repository/tiercache"
	"github.com/kailas-cloud/holdex/internal/usecase/degrade"
	healthuc "github.com/kailas-cloud/holdex/internal/usecase/health"
	holdingsuc "github.com/kailas-cloud/holdex/internal/usecase/holdings"
	"github.com/kailas-cloud/holdex/internal/usecase/lookup"
	usageuc "github.com/kailas-cloud/holdex/internal/usecase/usage"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for mocks in tests.
type holdingsUseCase interface {
	Search(ctx context.Context, query, fund string) (holdingsuc.Response, error)
	TopHoldings(ctx context.Context, fund string, limit int) (holdingsuc.Response, error)
	FundsContaining(ctx context.Context, ticker string) (holdingsuc.Response, error)
}

type usageUseCase interface {
	GetReport(ctx context.Context) domusage.Report
}

// Result is one served lookup.
type Result struct {
	// Body is the payload as the HTTP API serves it. Cached and static
	// answers hold decoded JSON (maps and slices).
	Body any
	// Source is the tier that answered: "cache", "live" or "static".
	Source string
	// Level is the service level the answer was shaped for.
	Level string
}

// Client is the holdex SDK entry point.
type Client struct {
	holdings  holdingsUseCase
	usageSvc  usageUseCase
	healthSvc healthUseCase
	obs       *observer
	closers   []func()
}

// New opens the holdings store, connects the optional remote cache and wires
// the protection layer. The provided context is used for the initial
// readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.sqlitePath == "" {
		return nil, errors.New("holdex: holdings database required (use WithSQLite)")
	}
	specs, err := cfg.quotaSpecs()
	if err != nil {
		return nil, err
	}
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := holdingsrepo.Open(cfg.sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("holdex: %w", err)
	}
	catalogue, err := store.Funds(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("holdex: read funds: %w", err)
	}

	var remote *dbRedis.Store
	if len(cfg.addrs) > 0 {
		remote, err = createRemote(ctx, cfg)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	c := wireClient(store, remote, specs, catalogue, cfg)
	c.obs = obs
	return c, nil
}

func createRemote(ctx context.Context, cfg *clientConfig) (*dbRedis.Store, error) {
	if cfg.driver != "valkey" && cfg.driver != "redis" {
		return nil, fmt.Errorf("holdex: unknown driver %q", cfg.driver)
	}
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("holdex: create %s store: %w", cfg.driver, err)
	}
	if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("holdex: %s not ready: %w", cfg.driver, err)
	}
	return s, nil
}

// wireClient assembles the use cases. remote may be nil.
func wireClient(
	store *holdingsrepo.Repo,
	remote *dbRedis.Store,
	specs []quota.Spec,
	catalogue []domain.Fund,
	cfg *clientConfig,
) *Client {
	logger := zap.NewNop()

	tracker := usageuc.NewTracker(specs, logger)
	resolver := usageuc.NewResolver(tracker)

	var cacheOpts []tiercache.Option
	if remote != nil {
		cacheOpts = append(cacheOpts, tiercache.WithRemote(remote, tracker.Budget(quota.ServiceRemoteCache)))
	}
	cache := tiercache.New(logger, cacheOpts...)

	deps := lookup.Deps{
		Limiter:  tracker,
		Cache:    cache,
		Degrader: degrade.New(),
		Resolver: resolver,
		Logger:   logger,
	}
	if cfg.fallbackDir != "" {
		deps.Static = fallback.New(cfg.fallbackDir, logger)
	}

	var remotePinger healthuc.Pinger
	c := &Client{closers: []func(){func() { _ = store.Close() }}}
	if remote != nil {
		remotePinger = remote
		c.closers = append(c.closers, remote.Close)
	}

	c.holdings = holdingsuc.NewService(holdingsuc.NewLoader(store), deps, catalogue,
		lookup.WithStaticWriteThrough(cfg.writeThrough && deps.Static != nil))
	c.usageSvc = usageuc.New(tracker, resolver, cache)
	c.healthSvc = healthuc.New(store, remotePinger)
	return c
}

// quotaSpecs merges overrides into the free-tier defaults.
func (cfg *clientConfig) quotaSpecs() ([]quota.Spec, error) {
	specs := quota.Defaults()
	for _, o := range cfg.quotas {
		s, err := quota.New(o.service, quota.Metric(o.metric), o.limit, o.warningPercent)
		if err != nil {
			return nil, fmt.Errorf("holdex: quota %s: %w", o.service, err)
		}
		replaced := false
		for i := range specs {
			if specs[i].Service() == s.Service() {
				specs[i] = s
				replaced = true
			}
		}
		if !replaced {
			specs = append(specs, s)
		}
	}
	return specs, nil
}

// Search finds holdings whose ticker or company name matches query,
// optionally within one fund.
func (c *Client) Search(ctx context.Context, query, fund string) (Result, error) {
	start := time.Now()
	resp, err := c.holdings.Search(ctx, query, fund)
	c.obs.observe("search", start, err)
	return toResult(resp), err
}

// TopHoldings returns a fund's largest positions. limit is clamped to 1..100.
func (c *Client) TopHoldings(ctx context.Context, fund string, limit int) (Result, error) {
	start := time.Now()
	resp, err := c.holdings.TopHoldings(ctx, fund, limit)
	c.obs.observe("top_holdings", start, err)
	return toResult(resp), err
}

// FundsContaining lists the funds holding ticker.
func (c *Client) FundsContaining(ctx context.Context, ticker string) (Result, error) {
	start := time.Now()
	resp, err := c.holdings.FundsContaining(ctx, ticker)
	c.obs.observe("stock_funds", start, err)
	return toResult(resp), err
}

// Close releases the holdings store and the remote connection.
func (c *Client) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func toResult(resp holdingsuc.Response) Result {
	return Result{Body: resp.Body, Source: string(resp.Source), Level: resp.Level.String()}
}
