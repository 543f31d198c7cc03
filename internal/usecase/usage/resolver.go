package usage

import (
	"github.com/kailas-cloud/holdex/internal/domain/level"
	"github.com/kailas-cloud/holdex/internal/domain/quota"
)

// usageReader is the read side of Tracker used for level resolution (ISP).
type usageReader interface {
	Quotas() []quota.Spec
	UsagePercentage(service string) float64
}

// Resolver derives the global service level from current usage.
// It never mutates counters and may be called at any frequency.
type Resolver struct {
	usage usageReader
}

// NewResolver creates a Resolver.
func NewResolver(u usageReader) *Resolver {
	return &Resolver{usage: u}
}

// MaxPercentage returns the highest usage percentage across configured quotas.
func (r *Resolver) MaxPercentage() float64 {
	var highest float64
	for _, q := range r.usage.Quotas() {
		if pct := r.usage.UsagePercentage(q.Service()); pct > highest {
			highest = pct
		}
	}
	return highest
}

// Resolve maps the highest usage percentage onto the service-level ladder.
func (r *Resolver) Resolve() level.Level {
	return level.FromPercentage(r.MaxPercentage())
}
