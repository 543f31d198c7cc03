package holdings

import (
	"context"
	"sync"

	"github.com/kailas-cloud/holdex/internal/domain"
)

// fakeReader is an in-memory Reader with per-method call counts.
type fakeReader struct {
	mu       sync.Mutex
	matches  []domain.HoldingMatch
	holdings map[string][]domain.Holding
	funds    []domain.Fund
	stats    domain.Stats
	err      error
	calls    map[string]int
	limits   []int
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		holdings: map[string][]domain.Holding{},
		calls:    map[string]int{},
	}
}

func (f *fakeReader) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.err
}

func (f *fakeReader) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeReader) Search(_ context.Context, _ string) ([]domain.HoldingMatch, error) {
	if err := f.hit("Search"); err != nil {
		return nil, err
	}
	return f.matches, nil
}

func (f *fakeReader) SearchInFund(_ context.Context, _, fund string) ([]domain.HoldingMatch, error) {
	if err := f.hit("SearchInFund"); err != nil {
		return nil, err
	}
	var out []domain.HoldingMatch
	for _, m := range f.matches {
		if m.FundSymbol == fund {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeReader) TopHoldings(_ context.Context, fund string, limit int) ([]domain.Holding, error) {
	if err := f.hit("TopHoldings"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	hs := f.holdings[fund]
	if limit >= 0 && len(hs) > limit {
		hs = hs[:limit]
	}
	return hs, nil
}

func (f *fakeReader) AllHoldings(_ context.Context, fund string) ([]domain.Holding, error) {
	if err := f.hit("AllHoldings"); err != nil {
		return nil, err
	}
	return f.holdings[fund], nil
}

func (f *fakeReader) FundsContaining(_ context.Context, ticker string) ([]domain.FundPosition, error) {
	if err := f.hit("FundsContaining"); err != nil {
		return nil, err
	}
	var out []domain.FundPosition
	for _, m := range f.matches {
		if m.Ticker == ticker {
			out = append(out, domain.FundPosition{
				FundSymbol:  m.FundSymbol,
				FundName:    m.FundName,
				Percentage:  m.Percentage,
				Shares:      m.Shares,
				MarketValue: m.MarketValue,
			})
		}
	}
	return out, nil
}

func (f *fakeReader) Funds(_ context.Context) ([]domain.Fund, error) {
	if err := f.hit("Funds"); err != nil {
		return nil, err
	}
	return f.funds, nil
}

func (f *fakeReader) Stats(_ context.Context) (domain.Stats, error) {
	if err := f.hit("Stats"); err != nil {
		return domain.Stats{}, err
	}
	return f.stats, nil
}

func match(fund, fundName, ticker, company string, pct float64) domain.HoldingMatch {
	return domain.HoldingMatch{
		Holding: domain.Holding{
			FundSymbol:  fund,
			Ticker:      ticker,
			CompanyName: company,
			Percentage:  pct,
			Shares:      10,
			MarketValue: 100,
		},
		FundName: fundName,
	}
}
