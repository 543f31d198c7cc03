package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the holdings store is failing.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDisabled marks an optional component that is not configured.
	CheckDisabled CheckResult = "disabled"
)

// Component names.
const (
	ComponentStore  = "holdings_store"
	ComponentRemote = "remote_cache"
)

const checkTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store  Pinger
	remote Pinger
}

// New creates a Service. remote can be nil; the service then runs on the
// in-memory cache tier alone.
func New(store, remote Pinger) *Service {
	return &Service{store: store, remote: remote}
}

// Check pings every component. A failing store makes the service unhealthy;
// a failing remote cache only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		ComponentStore:  ping(ctx, s.store),
		ComponentRemote: CheckDisabled,
	}
	if s.remote != nil {
		checks[ComponentRemote] = ping(ctx, s.remote)
	}

	status := Healthy
	switch {
	case checks[ComponentStore] == CheckError:
		status = Unhealthy
	case checks[ComponentRemote] == CheckError:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func ping(ctx context.Context, p Pinger) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
