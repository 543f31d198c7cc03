package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/domain"
	"github.com/kailas-cloud/holdex/internal/usecase/holdings"
)

// PopularTickers get stock and search snapshots on every run.
var PopularTickers = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NVDA", "BRK.B"}

// Saver persists one snapshot.
type Saver interface {
	Save(key string, value any) bool
}

// Manifest describes one generation run. It is itself saved under
// holdings.ManifestKey.
type Manifest struct {
	GeneratedAt time.Time `json:"generated_at"`
	Files       []string  `json:"files"`
	Empty       []string  `json:"empty,omitempty"`
	Failed      []string  `json:"failed,omitempty"`
}

// Option configures a Generator.
type Option func(*Generator)

// WithTickers overrides the popular ticker list.
func WithTickers(tickers []string) Option {
	return func(g *Generator) { g.tickers = tickers }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// Generator writes static fallback snapshots under the same keys the
// lookup chains read.
type Generator struct {
	loader  *holdings.Loader
	saver   Saver
	tickers []string
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a Generator.
func New(loader *holdings.Loader, saver Saver, logger *zap.Logger, opts ...Option) *Generator {
	g := &Generator{
		loader:  loader,
		saver:   saver,
		tickers: PopularTickers,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run regenerates every snapshot. Empty results are skipped; failed ones are
// reported in the manifest and in the joined error, and do not stop the run.
func (g *Generator) Run(ctx context.Context) (Manifest, error) {
	m := Manifest{GeneratedAt: g.now().UTC()}
	var errs []error

	write := func(key string, load func() (any, error)) {
		v, err := load()
		switch {
		case errors.Is(err, domain.ErrNotFound):
			m.Empty = append(m.Empty, key)
		case err != nil:
			m.Failed = append(m.Failed, key)
			errs = append(errs, fmt.Errorf("snapshot %s: %w", key, err))
		case !g.saver.Save(key, v):
			m.Failed = append(m.Failed, key)
			errs = append(errs, fmt.Errorf("snapshot %s: write failed", key))
		default:
			m.Files = append(m.Files, key)
		}
	}

	funds, err := g.loader.Funds(ctx)
	if err != nil {
		return m, fmt.Errorf("list funds: %w", err)
	}
	write(holdings.FundsKey, func() (any, error) { return funds, nil })
	write(holdings.StatsKey, func() (any, error) { return g.loader.Stats(ctx) })

	for _, f := range funds {
		for _, n := range holdings.SnapshotTopLimits {
			write(holdings.TopKey(f.Symbol, n), func() (any, error) { return g.loader.Top(ctx, f.Symbol, n) })
		}
		write(holdings.AllHoldingsKey(f.Symbol), func() (any, error) { return g.loader.AllHoldings(ctx, f.Symbol) })
	}

	for _, t := range g.tickers {
		write(holdings.StockKey(t), func() (any, error) { return g.loader.Stock(ctx, t) })
		write(holdings.SearchKey(t, ""), func() (any, error) { return g.loader.Search(ctx, t, "") })
	}

	if !g.saver.Save(holdings.ManifestKey, m) {
		errs = append(errs, errors.New("snapshot manifest: write failed"))
	}

	g.logger.Info("Static snapshots generated",
		zap.Int("files", len(m.Files)),
		zap.Int("empty", len(m.Empty)),
		zap.Int("failed", len(m.Failed)),
	)
	return m, errors.Join(errs...)
}
