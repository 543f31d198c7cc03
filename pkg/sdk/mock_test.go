package holdex

import (
	"context"

	domusage "github.com/kailas-cloud/holdex/internal/domain/usage"
	healthuc "github.com/kailas-cloud/holdex/internal/usecase/health"
	holdingsuc "github.com/kailas-cloud/holdex/internal/usecase/holdings"
)

// --- holdingsUseCase mock ---

type mockHoldingsUC struct {
	searchFn func(ctx context.Context, query, fund string) (holdingsuc.Response, error)
	topFn    func(ctx context.Context, fund string, limit int) (holdingsuc.Response, error)
	stockFn  func(ctx context.Context, ticker string) (holdingsuc.Response, error)
}

func (m *mockHoldingsUC) Search(ctx context.Context, query, fund string) (holdingsuc.Response, error) {
	return m.searchFn(ctx, query, fund)
}

func (m *mockHoldingsUC) TopHoldings(ctx context.Context, fund string, limit int) (holdingsuc.Response, error) {
	return m.topFn(ctx, fund, limit)
}

func (m *mockHoldingsUC) FundsContaining(ctx context.Context, ticker string) (holdingsuc.Response, error) {
	return m.stockFn(ctx, ticker)
}

// --- usageUseCase mock ---

type mockUsageUC struct {
	report domusage.Report
}

func (m *mockUsageUC) GetReport(_ context.Context) domusage.Report { return m.report }

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }
