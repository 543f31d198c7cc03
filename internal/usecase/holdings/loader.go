package holdings

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/holdex/internal/domain"
)

// Reader is the holdings store consumed by the loader (ISP).
type Reader interface {
	Search(ctx context.Context, query string) ([]domain.HoldingMatch, error)
	SearchInFund(ctx context.Context, query, fund string) ([]domain.HoldingMatch, error)
	TopHoldings(ctx context.Context, fund string, limit int) ([]domain.Holding, error)
	AllHoldings(ctx context.Context, fund string) ([]domain.Holding, error)
	FundsContaining(ctx context.Context, ticker string) ([]domain.FundPosition, error)
	Funds(ctx context.Context) ([]domain.Fund, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// Loader reads live data from the store and shapes it into the degradable
// values that lookups cache and snapshots persist. List operations return
// slices so degradation can truncate them; an empty list is domain.ErrNotFound.
type Loader struct {
	store Reader
}

// NewLoader creates a Loader.
func NewLoader(store Reader) *Loader {
	return &Loader{store: store}
}

// Search groups matching positions by fund, preserving percentage order.
func (l *Loader) Search(ctx context.Context, query, fund string) ([]FundGroup, error) {
	var (
		matches []domain.HoldingMatch
		err     error
	)
	if fund != "" {
		matches, err = l.store.SearchInFund(ctx, query, fund)
	} else {
		matches, err = l.store.Search(ctx, query)
	}
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("search %q: %w", query, domain.ErrNotFound)
	}

	var groups []FundGroup
	index := make(map[string]int)
	for _, m := range matches {
		i, ok := index[m.FundSymbol]
		if !ok {
			name := m.FundName
			if name == "" {
				name = m.FundSymbol
			}
			i = len(groups)
			index[m.FundSymbol] = i
			groups = append(groups, FundGroup{FundSymbol: m.FundSymbol, FundName: name})
		}
		groups[i].Holdings = append(groups[i].Holdings, SearchHit{
			Ticker:      m.Ticker,
			CompanyName: m.CompanyName,
			Percentage:  m.Percentage,
			MarketValue: m.MarketValue,
			Shares:      m.Shares,
		})
	}
	return groups, nil
}

// Top returns a fund's limit largest positions, ranked from 1.
func (l *Loader) Top(ctx context.Context, fund string, limit int) ([]RankedHolding, error) {
	hs, err := l.store.TopHoldings(ctx, fund, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return nil, fmt.Errorf("top holdings %s: %w", fund, domain.ErrNotFound)
	}
	out := make([]RankedHolding, len(hs))
	for i, h := range hs {
		out[i] = RankedHolding{
			Ticker:      h.Ticker,
			CompanyName: h.CompanyName,
			Percentage:  h.Percentage,
			MarketValue: h.MarketValue,
			Rank:        i + 1,
		}
	}
	return out, nil
}

// AllHoldings returns every position of a fund.
func (l *Loader) AllHoldings(ctx context.Context, fund string) ([]domain.Holding, error) {
	hs, err := l.store.AllHoldings(ctx, fund)
	if err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return nil, fmt.Errorf("holdings %s: %w", fund, domain.ErrNotFound)
	}
	return hs, nil
}

// Stock returns the funds holding ticker.
func (l *Loader) Stock(ctx context.Context, ticker string) ([]domain.FundPosition, error) {
	ps, err := l.store.FundsContaining(ctx, strings.ToUpper(ticker))
	if err != nil {
		return nil, err
	}
	if len(ps) == 0 {
		return nil, fmt.Errorf("stock %s: %w", ticker, domain.ErrNotFound)
	}
	return ps, nil
}

// Funds lists every stored fund. An empty store yields an empty list.
func (l *Loader) Funds(ctx context.Context) ([]domain.Fund, error) {
	fs, err := l.store.Funds(ctx)
	if err != nil {
		return nil, err
	}
	if fs == nil {
		fs = []domain.Fund{}
	}
	return fs, nil
}

// Stats summarizes the store.
func (l *Loader) Stats(ctx context.Context) (StatsSummary, error) {
	s, err := l.store.Stats(ctx)
	if err != nil {
		return StatsSummary{}, err
	}
	out := StatsSummary{
		TotalHoldings: s.UniqueStocks,
		TotalFunds:    s.TotalFunds,
		FundDetails:   s.Funds,
	}
	if !s.LatestUpdate.IsZero() {
		t := s.LatestUpdate
		out.LastUpdated = &t
	}
	if out.FundDetails == nil {
		out.FundDetails = []domain.FundStat{}
	}
	return out, nil
}
