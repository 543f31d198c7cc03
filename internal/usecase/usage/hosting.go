package usage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/domain/quota"
)

type incrementer interface {
	Increment(service string, metric quota.Metric) int64
}

// HostingMeter charges process uptime to a monthly_hours quota, one unit per
// interval (normally an hour).
type HostingMeter struct {
	tracker  incrementer
	service  string
	interval time.Duration
	logger   *zap.Logger
}

// NewHostingMeter creates a meter. interval <= 0 means one hour.
func NewHostingMeter(tracker incrementer, service string, interval time.Duration, logger *zap.Logger) *HostingMeter {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HostingMeter{tracker: tracker, service: service, interval: interval, logger: logger}
}

// Run ticks until ctx is done.
func (m *HostingMeter) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := m.tracker.Increment(m.service, quota.MonthlyHours)
			m.logger.Debug("Hosting hour recorded", zap.String("service", m.service), zap.Int64("hours", n))
		}
	}
}
