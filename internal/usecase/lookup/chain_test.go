package lookup

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/domain"
	"github.com/kailas-cloud/holdex/internal/domain/level"
	"github.com/kailas-cloud/holdex/internal/domain/quota"
	"github.com/kailas-cloud/holdex/internal/repository/fallback"
	"github.com/kailas-cloud/holdex/internal/repository/tiercache"
	"github.com/kailas-cloud/holdex/internal/usecase/degrade"
	"github.com/kailas-cloud/holdex/internal/usecase/usage"
)

type fixture struct {
	tracker *usage.Tracker
	cache   *mockCache
	static  *mockStatic
	chain   *Chain
}

func newFixture(specs []quota.Spec, opts ...Option) *fixture {
	tr := usage.NewTracker(specs, zap.NewNop())
	f := &fixture{tracker: tr, cache: newMockCache(), static: newMockStatic()}
	f.chain = New("search", Deps{
		Limiter:  tr,
		Cache:    f.cache,
		Static:   f.static,
		Degrader: degrade.New(),
		Resolver: usage.NewResolver(tr),
		Logger:   zap.NewNop(),
	}, opts...)
	return f
}

func unavailable(context.Context) (any, error) { return nil, errors.New("connection refused") }

func TestChain_StaticFallbackWhenRemoteOverBudget(t *testing.T) {
	tr := usage.NewTracker([]quota.Spec{quota.MustNew(quota.ServiceRemoteCache, quota.DailyRequests, 1, 80)}, zap.NewNop())
	tr.Increment(quota.ServiceRemoteCache, quota.DailyRequests)

	cache := tiercache.New(zap.NewNop(), tiercache.WithRemote(forbiddenRemote{t: t}, tr.Budget(quota.ServiceRemoteCache)))
	static := fallback.New(t.TempDir(), zap.NewNop())
	static.Save("search:aapl", map[string]any{"ticker": "AAPL", "percentage": 6.5})

	chain := New("search", Deps{
		Limiter:  tr,
		Cache:    cache,
		Static:   static,
		Degrader: degrade.New(),
		Resolver: usage.NewResolver(tr),
		Logger:   zap.NewNop(),
	})

	res, err := chain.Lookup(context.Background(), "search:aapl", unavailable)
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if res.Source != SourceStatic {
		t.Errorf("Source = %s, want static", res.Source)
	}
	want := map[string]any{"ticker": "AAPL", "percentage": 6.5}
	if !reflect.DeepEqual(res.Value, want) {
		t.Errorf("Value = %v, want %v", res.Value, want)
	}
}

func TestChain_CacheHit(t *testing.T) {
	f := newFixture(quota.Defaults())
	f.cache.data["funds"] = []string{"VOO"}

	called := false
	res, err := f.chain.Lookup(context.Background(), "funds", func(context.Context) (any, error) {
		called = true
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if called {
		t.Error("fetcher called on cache hit")
	}
	if res.Source != SourceCache {
		t.Errorf("Source = %s", res.Source)
	}
	if f.tracker.Current(quota.ServiceDatabase) != 0 {
		t.Error("cache hit consumed database quota")
	}
	if f.tracker.Current(quota.ServiceAPI) != 1 {
		t.Errorf("api_requests = %d, want 1", f.tracker.Current(quota.ServiceAPI))
	}
}

func TestChain_LiveResultIsCachedWithLevelTTL(t *testing.T) {
	f := newFixture(quota.Defaults())

	res, err := f.chain.Lookup(context.Background(), "top:VOO:10", func(context.Context) (any, error) {
		return []int{1, 2, 3}, nil
	})
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if res.Source != SourceLive || res.Level != level.Normal {
		t.Errorf("Result = %+v", res)
	}
	set, ok := f.cache.sets["top:VOO:10"]
	if !ok {
		t.Fatal("live result not cached")
	}
	if set.ttl != 5*time.Minute {
		t.Errorf("ttl = %v at normal, want 5m", set.ttl)
	}
	if f.tracker.Current(quota.ServiceDatabase) != 1 {
		t.Errorf("database_queries = %d, want 1", f.tracker.Current(quota.ServiceDatabase))
	}
}

func TestChain_DegradesUnderPressure(t *testing.T) {
	f := newFixture([]quota.Spec{
		quota.MustNew(quota.ServiceAPI, quota.DailyRequests, 1000, 99),
		quota.MustNew(quota.ServiceHosting, quota.MonthlyHours, 100, 99),
	})
	for range 88 {
		f.tracker.Increment(quota.ServiceHosting, quota.MonthlyHours)
	}

	rows := make([]int, 150)
	res, err := f.chain.Lookup(context.Background(), "top:VOO:100", func(context.Context) (any, error) {
		return rows, nil
	})
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if res.Level != level.Minimal {
		t.Fatalf("Level = %s, want minimal", res.Level)
	}
	if got := res.Value.([]int); len(got) != 20 {
		t.Errorf("len = %d, want 20", len(got))
	}
	if f.cache.sets["top:VOO:100"].ttl != time.Hour {
		t.Errorf("ttl = %v when degraded, want 1h", f.cache.sets["top:VOO:100"].ttl)
	}
}

func TestChain_NotFoundPassesThrough(t *testing.T) {
	f := newFixture(quota.Defaults())
	f.static.data["search:zzzz"] = map[string]any{"stale": true}

	_, err := f.chain.Lookup(context.Background(), "search:zzzz", func(context.Context) (any, error) {
		return nil, domain.ErrNotFound
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, ok := f.cache.sets["search:zzzz"]; ok {
		t.Error("not-found result was cached")
	}
}

func TestChain_UnavailableWithoutSnapshot(t *testing.T) {
	f := newFixture(quota.Defaults())

	_, err := f.chain.Lookup(context.Background(), "stock:AAPL", unavailable)
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestChain_DatabaseQuotaFallsBackToStatic(t *testing.T) {
	f := newFixture([]quota.Spec{quota.MustNew(quota.ServiceDatabase, quota.DailyRequests, 1, 70)})
	f.tracker.Increment(quota.ServiceDatabase, quota.DailyRequests)
	f.static.data["funds"] = []any{"VOO"}

	res, err := f.chain.Lookup(context.Background(), "funds", func(context.Context) (any, error) {
		t.Error("fetcher called over database quota")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if res.Source != SourceStatic {
		t.Errorf("Source = %s, want static", res.Source)
	}
}

func TestChain_DatabaseQuotaWithoutSnapshot(t *testing.T) {
	f := newFixture([]quota.Spec{quota.MustNew(quota.ServiceDatabase, quota.DailyRequests, 1, 70)})
	f.tracker.Increment(quota.ServiceDatabase, quota.DailyRequests)

	_, err := f.chain.Lookup(context.Background(), "funds", unavailable)
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) || qe.Service != quota.ServiceDatabase {
		t.Errorf("expected QuotaExceededError for database_queries, got %v", err)
	}
}

func TestChain_APIQuotaServesLastResult(t *testing.T) {
	f := newFixture([]quota.Spec{quota.MustNew(quota.ServiceAPI, quota.DailyRequests, 1, 75)})

	first, err := f.chain.Lookup(context.Background(), "stock:AAPL", func(context.Context) (any, error) {
		return "aapl-funds", nil
	})
	if err != nil {
		t.Fatalf("first Lookup() error: %v", err)
	}

	second, err := f.chain.Lookup(context.Background(), "stock:MSFT", func(context.Context) (any, error) {
		t.Error("fetcher called over api quota")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("second Lookup() error: %v", err)
	}
	if second.Value != first.Value {
		t.Errorf("second Value = %v, want remembered %v", second.Value, first.Value)
	}
}

func TestChain_APIQuotaRefusal(t *testing.T) {
	f := newFixture([]quota.Spec{quota.MustNew(quota.ServiceAPI, quota.DailyRequests, 1, 75)})
	f.tracker.Increment(quota.ServiceAPI, quota.DailyRequests)

	_, err := f.chain.Lookup(context.Background(), "funds", unavailable)
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) || qe.Service != quota.ServiceAPI {
		t.Errorf("expected QuotaExceededError for api_requests, got %v", err)
	}
}

func TestChain_StaticWriteThrough(t *testing.T) {
	f := newFixture(quota.Defaults(), WithStaticWriteThrough(true))

	_, err := f.chain.Lookup(context.Background(), "stats", func(context.Context) (any, error) {
		return map[string]any{"total_funds": 5}, nil
	})
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if len(f.static.saved) != 1 || f.static.saved[0] != "stats" {
		t.Errorf("saved = %v", f.static.saved)
	}
}

func TestChain_ConcurrentMissesShareOneFetch(t *testing.T) {
	f := newFixture(quota.Defaults())

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			if _, err := f.chain.Lookup(context.Background(), "search:aapl", fetch); err != nil {
				t.Errorf("Lookup() error: %v", err)
			}
		})
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n < 1 || n > 8 {
		t.Errorf("fetch calls = %d", n)
	}
	if f.tracker.Current(quota.ServiceDatabase) != int64(calls.Load()) {
		t.Errorf("database_queries = %d, fetch calls = %d", f.tracker.Current(quota.ServiceDatabase), calls.Load())
	}
}

func TestChain_SharedFetchOutlivesCancelledCaller(t *testing.T) {
	f := newFixture(quota.Defaults())

	started := make(chan struct{}, 8)
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		started <- struct{}{}
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return "v", nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	var leader, follower Result
	var leaderErr, followerErr error
	var wg sync.WaitGroup
	wg.Go(func() {
		leader, leaderErr = f.chain.Lookup(leaderCtx, "search:aapl", fetch)
	})
	<-started
	wg.Go(func() {
		follower, followerErr = f.chain.Lookup(context.Background(), "search:aapl", fetch)
	})
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(release)
	wg.Wait()

	if leaderErr != nil || leader.Value != "v" {
		t.Errorf("leader Lookup() = %+v, %v; want v", leader, leaderErr)
	}
	if followerErr != nil || follower.Value != "v" {
		t.Errorf("follower Lookup() = %+v, %v; want v", follower, followerErr)
	}
}

func TestChain_SharedFetchHasItsOwnDeadline(t *testing.T) {
	f := newFixture(quota.Defaults(), WithFetchTimeout(20*time.Millisecond))

	_, err := f.chain.Lookup(context.Background(), "search:aapl", func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("Lookup() error = %v, want ErrUnavailable", err)
	}
}

func TestChain_CacheHitReportsShapedLevel(t *testing.T) {
	f := newFixture(quota.Defaults())
	f.cache.data["top:VOO:100"] = entry{Value: []int{1, 2}, Level: level.Reduced}
	// Remote hits come back as decoded JSON objects.
	f.cache.data["search:aapl"] = map[string]any{"value": "v", "level": "minimal"}
	f.cache.data["funds"] = []string{"VOO"}

	tests := []struct {
		key       string
		wantValue any
		wantLevel level.Level
	}{
		{"top:VOO:100", []int{1, 2}, level.Reduced},
		{"search:aapl", "v", level.Minimal},
		{"funds", []string{"VOO"}, level.Normal},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			res, err := f.chain.Lookup(context.Background(), tt.key, func(context.Context) (any, error) {
				t.Error("fetcher called on cache hit")
				return nil, nil
			})
			if err != nil {
				t.Fatalf("Lookup() error: %v", err)
			}
			if res.Source != SourceCache || res.Level != tt.wantLevel {
				t.Errorf("Result = %+v, want cache at %s", res, tt.wantLevel)
			}
			if !reflect.DeepEqual(res.Value, tt.wantValue) {
				t.Errorf("Value = %v, want %v", res.Value, tt.wantValue)
			}
		})
	}
}

func TestChain_CachesShapingLevel(t *testing.T) {
	f := newFixture([]quota.Spec{
		quota.MustNew(quota.ServiceAPI, quota.DailyRequests, 1000, 99),
		quota.MustNew(quota.ServiceHosting, quota.MonthlyHours, 100, 99),
	})
	for range 88 {
		f.tracker.Increment(quota.ServiceHosting, quota.MonthlyHours)
	}

	if _, err := f.chain.Lookup(context.Background(), "top:VOO:100", func(context.Context) (any, error) {
		return make([]int, 150), nil
	}); err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}

	got, ok := f.cache.sets["top:VOO:100"].value.(entry)
	if !ok {
		t.Fatalf("cached %T, want entry", f.cache.sets["top:VOO:100"].value)
	}
	if got.Level != level.Minimal {
		t.Errorf("cached level = %s, want minimal", got.Level)
	}
	if v, ok := got.Value.([]int); !ok || len(v) != 20 {
		t.Errorf("cached value = %v, want 20 rows", got.Value)
	}
}
