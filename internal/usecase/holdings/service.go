package holdings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/holdex/internal/domain"
	"github.com/kailas-cloud/holdex/internal/domain/level"
	"github.com/kailas-cloud/holdex/internal/usecase/lookup"
)

// Operation names, used as lookup metrics labels.
const (
	OpSearch = "search"
	OpTop    = "top_holdings"
	OpStock  = "stock_funds"
	OpFunds  = "funds"
	OpStats  = "stats"
)

// Response is a served payload and the tier that produced it.
type Response struct {
	Body   any
	Source lookup.Source
	Level  level.Level
}

// Service answers holdings queries through one lookup chain per operation.
type Service struct {
	loader    *Loader
	catalogue map[string]domain.Fund
	search    *lookup.Chain
	top       *lookup.Chain
	stock     *lookup.Chain
	funds     *lookup.Chain
	stats     *lookup.Chain
}

// NewService creates a Service. catalogue lists the supported funds.
func NewService(loader *Loader, deps lookup.Deps, catalogue []domain.Fund, opts ...lookup.Option) *Service {
	cat := make(map[string]domain.Fund, len(catalogue))
	for _, f := range catalogue {
		cat[strings.ToUpper(f.Symbol)] = f
	}
	return &Service{
		loader:    loader,
		catalogue: cat,
		search:    lookup.New(OpSearch, deps, opts...),
		top:       lookup.New(OpTop, deps, opts...),
		stock:     lookup.New(OpStock, deps, opts...),
		funds:     lookup.New(OpFunds, deps, opts...),
		stats:     lookup.New(OpStats, deps, opts...),
	}
}

// Search finds holdings matching query (ticker or company name), optionally
// within one fund.
func (s *Service) Search(ctx context.Context, query, fund string) (Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Response{}, fmt.Errorf("missing search query: %w", domain.ErrInvalidQuery)
	}
	fund = strings.ToUpper(strings.TrimSpace(fund))

	res, err := s.search.Lookup(ctx, SearchKey(query, fund), func(ctx context.Context) (any, error) {
		return s.loader.Search(ctx, query, fund)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return Response{
			Body: SearchMiss{
				Query:   query,
				Message: fmt.Sprintf("No holdings found for %q", query),
			},
			Source: lookup.SourceLive,
		}, nil
	}
	if err != nil {
		return Response{}, err
	}
	return wrap(res, func(v any) any {
		return SearchResult{Found: true, Query: query, Funds: v, TotalFunds: length(v)}
	}), nil
}

// TopHoldings returns a fund's largest positions. limit is clamped to
// [1, MaxTopLimit].
func (s *Service) TopHoldings(ctx context.Context, fund string, limit int) (Response, error) {
	fund = strings.ToUpper(strings.TrimSpace(fund))
	limit = ClampLimit(limit)
	name := s.fundName(fund)

	res, err := s.top.Lookup(ctx, TopKey(fund, limit), func(ctx context.Context) (any, error) {
		return s.loader.Top(ctx, fund, limit)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return Response{
			Body:   TopResult{FundSymbol: fund, FundName: name, Holdings: []RankedHolding{}},
			Source: lookup.SourceLive,
		}, nil
	}
	if err != nil {
		return Response{}, err
	}
	return wrap(res, func(v any) any {
		return TopResult{FundSymbol: fund, FundName: name, Count: length(v), Holdings: v}
	}), nil
}

// FundsContaining lists the funds holding ticker.
func (s *Service) FundsContaining(ctx context.Context, ticker string) (Response, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return Response{}, fmt.Errorf("missing ticker: %w", domain.ErrInvalidQuery)
	}

	res, err := s.stock.Lookup(ctx, StockKey(ticker), func(ctx context.Context) (any, error) {
		return s.loader.Stock(ctx, ticker)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return Response{
			Body: StockMiss{
				Ticker:  ticker,
				Message: ticker + " not found in any tracked funds",
			},
			Source: lookup.SourceLive,
		}, nil
	}
	if err != nil {
		return Response{}, err
	}
	return wrap(res, func(v any) any {
		return StockResult{Found: true, Ticker: ticker, Funds: v, TotalFunds: length(v)}
	}), nil
}

// Funds lists stored funds alongside the supported catalogue.
func (s *Service) Funds(ctx context.Context) (Response, error) {
	res, err := s.funds.Lookup(ctx, FundsKey, func(ctx context.Context) (any, error) {
		return s.loader.Funds(ctx)
	})
	if err != nil {
		return Response{}, err
	}
	supported := s.Supported()
	return wrap(res, func(v any) any {
		return FundsResult{Funds: v, SupportedFunds: supported}
	}), nil
}

// Stats summarizes the holdings store.
func (s *Service) Stats(ctx context.Context) (Response, error) {
	res, err := s.stats.Lookup(ctx, StatsKey, func(ctx context.Context) (any, error) {
		return s.loader.Stats(ctx)
	})
	if err != nil {
		return Response{}, err
	}
	return Response{Body: res.Value, Source: res.Source, Level: res.Level}, nil
}

// Supported returns the fund catalogue keyed by symbol.
func (s *Service) Supported() map[string]SupportedFund {
	out := make(map[string]SupportedFund, len(s.catalogue))
	for sym, f := range s.catalogue {
		out[sym] = SupportedFund{Name: f.Name, Description: f.Description, ExpenseRatio: f.ExpenseRatio}
	}
	return out
}

func (s *Service) fundName(symbol string) string {
	if f, ok := s.catalogue[symbol]; ok && f.Name != "" {
		return f.Name
	}
	return symbol
}

// wrap builds the response body around a lookup value. The static_only
// placeholder is served as is.
func wrap(res lookup.Result, build func(v any) any) Response {
	body := res.Value
	if !isSentinel(body) {
		body = build(body)
	}
	return Response{Body: body, Source: res.Source, Level: res.Level}
}
