package snapshot

import (
	"context"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/holdex/internal/domain"
	"github.com/kailas-cloud/holdex/internal/repository/fallback"
	repo "github.com/kailas-cloud/holdex/internal/repository/holdings"
	"github.com/kailas-cloud/holdex/internal/usecase/holdings"
)

var genTime = time.Date(2025, 6, 10, 6, 0, 0, 0, time.UTC)

func newTestLoader(t *testing.T) *holdings.Loader {
	t.Helper()
	ctx := context.Background()

	r, err := repo.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })

	if err := r.UpsertFund(ctx, domain.Fund{Symbol: "VOO", Name: "Vanguard S&P 500 ETF"}); err != nil {
		t.Fatalf("UpsertFund: %v", err)
	}
	hs := []domain.Holding{
		{Ticker: "AAPL", CompanyName: "Apple Inc.", Percentage: 7},
		{Ticker: "MSFT", CompanyName: "Microsoft Corp", Percentage: 6},
	}
	if err := r.ReplaceHoldings(ctx, "VOO", hs, genTime); err != nil {
		t.Fatalf("ReplaceHoldings: %v", err)
	}
	return holdings.NewLoader(r)
}

type failingSaver struct{ saved []string }

func (f *failingSaver) Save(key string, _ any) bool {
	if key == holdings.StatsKey {
		return false
	}
	f.saved = append(f.saved, key)
	return true
}

func TestGenerator_Run(t *testing.T) {
	store := fallback.New(t.TempDir(), zap.NewNop())
	g := New(newTestLoader(t), store, zap.NewNop(),
		WithTickers([]string{"AAPL", "TSLA"}),
		WithClock(func() time.Time { return genTime }),
	)

	m, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	wantFiles := []string{
		"funds", "stats",
		"top:VOO:10", "top:VOO:20", "top:VOO:100", "all_holdings:VOO",
		"stock:AAPL", "search:aapl",
	}
	if !slices.Equal(m.Files, wantFiles) {
		t.Errorf("Files = %v, want %v", m.Files, wantFiles)
	}
	if !slices.Equal(m.Empty, []string{"stock:TSLA", "search:tsla"}) {
		t.Errorf("Empty = %v", m.Empty)
	}
	if !m.GeneratedAt.Equal(genTime) {
		t.Errorf("GeneratedAt = %v", m.GeneratedAt)
	}

	v, ok := store.Load("top:VOO:10")
	if !ok {
		t.Fatal("top:VOO:10 snapshot missing")
	}
	rows, ok := v.([]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("top:VOO:10 = %#v, want two rows", v)
	}
	first := rows[0].(map[string]any)
	if first["ticker"] != "AAPL" || first["rank"] != float64(1) {
		t.Errorf("first row = %v", first)
	}

	if _, ok := store.Load(holdings.ManifestKey); !ok {
		t.Error("manifest not written")
	}
	if _, ok := store.Load("stock:TSLA"); ok {
		t.Error("empty result written as snapshot")
	}
}

func TestGenerator_Run_SaveFailureReported(t *testing.T) {
	saver := &failingSaver{}
	g := New(newTestLoader(t), saver, zap.NewNop(), WithTickers(nil))

	m, err := g.Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want stats write failure")
	}
	if !slices.Equal(m.Failed, []string{"stats"}) {
		t.Errorf("Failed = %v, want [stats]", m.Failed)
	}
	if !slices.Contains(saver.saved, holdings.ManifestKey) {
		t.Error("manifest skipped after a failed write")
	}
}
