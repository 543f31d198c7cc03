package usage

import (
	"testing"

	"github.com/kailas-cloud/holdex/internal/domain/quota"
)

func TestServiceBudget(t *testing.T) {
	clock := newFakeClock(day1)
	tr := newTestTracker(clock, nil, quota.MustNew("remote_cache", quota.DailyRequests, 2, 80))
	b := tr.Budget("remote_cache")

	if b.Limit() != 2 {
		t.Errorf("Limit() = %d", b.Limit())
	}
	for range 2 {
		if !b.Allow() {
			t.Fatal("Allow() = false under budget")
		}
		b.Spend()
	}
	if b.Allow() {
		t.Error("Allow() = true at budget")
	}
	if b.Used() != 2 {
		t.Errorf("Used() = %d", b.Used())
	}

	clock.Set(day1.AddDate(0, 0, 1))
	if !b.Allow() {
		t.Error("Allow() = false on the next day")
	}
}

func TestServiceBudget_Unconfigured(t *testing.T) {
	tr := newTestTracker(newFakeClock(day1), nil)
	b := tr.Budget("remote_cache")
	if b.Limit() != 0 || !b.Allow() {
		t.Errorf("unconfigured budget: Limit()=%d Allow()=%v", b.Limit(), b.Allow())
	}
}
