package usage

import (
	"github.com/kailas-cloud/holdex/internal/domain/level"
	"github.com/kailas-cloud/holdex/internal/domain/usage/budget"
	"github.com/kailas-cloud/holdex/internal/domain/usage/cache"
)

// Severity grades a usage warning.
type Severity string

// Severity constants.
const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Warning flags a service running close to its quota.
type Warning struct {
	Service  string
	Message  string
	Severity Severity
}

// Report is the usage snapshot served by the usage endpoint.
type Report struct {
	budgets  []budget.Budget
	cache    cache.Stats
	level    level.Level
	warnings []Warning
}

// NewReport creates a usage report.
func NewReport(budgets []budget.Budget, c cache.Stats, lvl level.Level, warnings []Warning) Report {
	return Report{budgets: budgets, cache: c, level: lvl, warnings: warnings}
}

// Budgets returns per-service quota snapshots, ordered by service name.
func (r *Report) Budgets() []budget.Budget { return r.budgets }

// Cache returns tiered cache statistics.
func (r *Report) Cache() cache.Stats { return r.cache }

// Level returns the global service level.
func (r *Report) Level() level.Level { return r.level }

// Warnings returns active warnings.
func (r *Report) Warnings() []Warning { return r.warnings }
