package usage

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Alert is emitted once per service, UTC day and threshold.
type Alert struct {
	Service    string
	Day        time.Time
	Threshold  float64
	Percentage float64
	Count      int64
	Limit      int64
}

// Notifier receives quota warning alerts. Notify must not block for long;
// it runs on the incrementing goroutine.
type Notifier interface {
	Notify(ctx context.Context, a Alert)
}

// LogNotifier writes alerts to the log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the alert at warn level.
func (n *LogNotifier) Notify(_ context.Context, a Alert) {
	n.logger.Warn("Quota warning threshold reached",
		zap.String("service", a.Service),
		zap.String("day", a.Day.Format("2006-01-02")),
		zap.Float64("threshold_percent", a.Threshold),
		zap.Float64("usage_percent", a.Percentage),
		zap.Int64("count", a.Count),
		zap.Int64("limit", a.Limit),
	)
}
