package usage

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/domain/quota"
)

func TestHostingMeter_Run(t *testing.T) {
	tr := NewTracker([]quota.Spec{quota.MustNew("hosting", quota.MonthlyHours, 750, 85)}, zap.NewNop())
	m := NewHostingMeter(tr, "hosting", 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for tr.Current("hosting") < 3 {
		select {
		case <-deadline:
			t.Fatalf("hosting hours = %d, want >= 3", tr.Current("hosting"))
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewHostingMeter_DefaultInterval(t *testing.T) {
	m := NewHostingMeter(nil, "hosting", 0, zap.NewNop())
	if m.interval != time.Hour {
		t.Errorf("interval = %v, want 1h", m.interval)
	}
}
