package domain

import "time"

// KeyPrefix namespaces every key holdex writes to the remote store.
const KeyPrefix = "holdex:"

// Fund is a tracked index fund.
type Fund struct {
	Symbol        string    `json:"fund_symbol"`
	Name          string    `json:"fund_name"`
	Description   string    `json:"description,omitempty"`
	ExpenseRatio  float64   `json:"expense_ratio"`
	LastUpdated   time.Time `json:"last_updated"`
	HoldingsCount int       `json:"holdings_count"`
}

// Holding is a single position of a fund.
type Holding struct {
	FundSymbol   string  `json:"fund_symbol,omitempty"`
	Sedol        string  `json:"sedol,omitempty"`
	CompanyName  string  `json:"company_name"`
	Ticker       string  `json:"ticker"`
	Percentage   float64 `json:"percentage"`
	SubIndustry  string  `json:"sub_industry,omitempty"`
	Country      string  `json:"country,omitempty"`
	SecurityType string  `json:"security_type,omitempty"`
	MarketValue  float64 `json:"market_value"`
	Shares       int64   `json:"shares"`
}

// HoldingMatch is a search hit joined with its fund name.
type HoldingMatch struct {
	Holding
	FundName string
}

// FundPosition is a fund's position in a single ticker.
type FundPosition struct {
	FundSymbol  string  `json:"fund_symbol"`
	FundName    string  `json:"fund_name"`
	Percentage  float64 `json:"percentage"`
	Shares      int64   `json:"shares"`
	MarketValue float64 `json:"market_value"`
}

// FundStat is a per-fund holdings count.
type FundStat struct {
	FundSymbol    string `json:"fund_symbol"`
	FundName      string `json:"fund_name"`
	HoldingsCount int    `json:"holdings_count"`
}

// Stats summarizes the holdings store.
type Stats struct {
	UniqueStocks int
	TotalFunds   int
	LatestUpdate time.Time
	Funds        []FundStat
}
