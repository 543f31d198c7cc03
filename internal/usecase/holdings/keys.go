package holdings

import (
	"strconv"
	"strings"
)

// Top holdings limits.
const (
	DefaultTopLimit = 10
	MaxTopLimit     = 100
)

// SnapshotTopLimits are the top-holdings sizes pre-generated as static snapshots.
var SnapshotTopLimits = []int{10, 20, 100}

// Cache and snapshot keys. Lookups and snapshot generation must agree on them.
const (
	FundsKey    = "funds"
	StatsKey    = "stats"
	ManifestKey = "manifest"
)

// SearchKey is the key for a search, optionally scoped to one fund.
func SearchKey(query, fund string) string {
	k := "search:" + strings.ToLower(strings.TrimSpace(query))
	if fund != "" {
		k += ":" + strings.ToUpper(fund)
	}
	return k
}

// TopKey is the key for a fund's top holdings at a clamped limit.
func TopKey(fund string, limit int) string {
	return "top:" + strings.ToUpper(fund) + ":" + strconv.Itoa(limit)
}

// StockKey is the key for the funds containing ticker.
func StockKey(ticker string) string {
	return "stock:" + strings.ToUpper(ticker)
}

// AllHoldingsKey is the key for a fund's full holdings list.
func AllHoldingsKey(fund string) string {
	return "all_holdings:" + strings.ToUpper(fund)
}

// ClampLimit bounds a requested top-holdings limit to [1, MaxTopLimit].
func ClampLimit(n int) int {
	return min(max(n, 1), MaxTopLimit)
}

// ParseLimit parses the raw limit query value. Empty means DefaultTopLimit.
func ParseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultTopLimit, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	return ClampLimit(n), nil
}
