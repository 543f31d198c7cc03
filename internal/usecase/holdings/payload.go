package holdings

import (
	"reflect"
	"time"

	"github.com/kailas-cloud/holdex/internal/domain"
	"github.com/kailas-cloud/holdex/internal/usecase/degrade"
)

// SearchHit is one matching position inside a fund group.
type SearchHit struct {
	Ticker      string  `json:"ticker"`
	CompanyName string  `json:"company_name"`
	Percentage  float64 `json:"percentage"`
	MarketValue float64 `json:"market_value"`
	Shares      int64   `json:"shares"`
}

// FundGroup collects a fund's search hits.
type FundGroup struct {
	FundSymbol string      `json:"fund_symbol"`
	FundName   string      `json:"fund_name"`
	Holdings   []SearchHit `json:"holdings"`
}

// RankedHolding is one row of a top-holdings list.
type RankedHolding struct {
	Ticker      string  `json:"ticker"`
	CompanyName string  `json:"company_name"`
	Percentage  float64 `json:"percentage"`
	MarketValue float64 `json:"market_value"`
	Rank        int     `json:"rank"`
}

// StatsSummary is the /api/stats payload.
type StatsSummary struct {
	TotalHoldings int               `json:"total_holdings"`
	TotalFunds    int               `json:"total_funds"`
	LastUpdated   *time.Time        `json:"last_updated"`
	FundDetails   []domain.FundStat `json:"fund_details"`
}

// SupportedFund is a catalogue entry as served by /api/funds.
type SupportedFund struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	ExpenseRatio float64 `json:"expense_ratio"`
}

// SearchResult is a successful search. Funds holds []FundGroup or its
// decoded JSON form when served from a cache tier.
type SearchResult struct {
	Found      bool   `json:"found"`
	Query      string `json:"query"`
	Funds      any    `json:"funds"`
	TotalFunds int    `json:"total_funds"`
}

// SearchMiss is an empty search.
type SearchMiss struct {
	Found   bool   `json:"found"`
	Query   string `json:"query"`
	Message string `json:"message"`
}

// TopResult is a fund's top holdings.
type TopResult struct {
	FundSymbol string `json:"fund_symbol"`
	FundName   string `json:"fund_name"`
	Count      int    `json:"count"`
	Holdings   any    `json:"holdings"`
}

// StockResult lists the funds holding a ticker.
type StockResult struct {
	Found      bool   `json:"found"`
	Ticker     string `json:"ticker"`
	Funds      any    `json:"funds"`
	TotalFunds int    `json:"total_funds"`
}

// StockMiss is a ticker no tracked fund holds.
type StockMiss struct {
	Found   bool   `json:"found"`
	Ticker  string `json:"ticker"`
	Message string `json:"message"`
}

// FundsResult is the fund listing.
type FundsResult struct {
	Funds          any                      `json:"funds"`
	SupportedFunds map[string]SupportedFund `json:"supported_funds"`
}

// isSentinel reports whether v is the static_only placeholder, either as
// produced by the degrader or decoded back from JSON.
func isSentinel(v any) bool {
	switch x := v.(type) {
	case degrade.StaticResponse:
		return true
	case map[string]any:
		d, _ := x["data"].(string)
		return d == degrade.Sentinel.Data
	default:
		return false
	}
}

// length counts the elements of a typed or decoded slice. Anything else is 0.
func length(v any) int {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		return rv.Len()
	}
	return 0
}
