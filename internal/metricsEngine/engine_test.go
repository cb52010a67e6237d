package metricsEngine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/KotFed0t/kr_portfolio_manager/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLookup struct {
	mu     sync.Mutex
	prices map[string]int64
	calls  []string
}

func (s *stubLookup) Price(_ context.Context, ticker string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ticker)
	if p, ok := s.prices[ticker]; ok {
		return p
	}
	return 1000
}

func TestCalculateSingleHolding(t *testing.T) {
	engine := New(&stubLookup{prices: map[string]int64{"T1": 10}}, 2)

	records := []model.HoldingRecord{{Name: "X", Ticker: "T1", Quantity: 100, TargetWeight: "50.00%"}}
	view, err := engine.Calculate(context.Background(), records, 900, 0.9)
	require.NoError(t, err)
	require.Len(t, view.Rows, 1)

	row := view.Rows[0]
	assert.Equal(t, "10", row.CurrentPrice)
	assert.Equal(t, "1,000", row.MarketValue)
	assert.Equal(t, "52.6%", row.InclusionWeightOfNav)
	assert.Equal(t, "58.5%", row.InclusionWeightOfEquitySleeve)
	assert.Equal(t, "45.0%", row.TargetWeightOfNav)
	assert.Equal(t, "45.0%", row.RevisedTargetWeightOfNav)
	assert.Equal(t, "0.0%", row.DriftTargetVsTarget)
	assert.Equal(t, "-7.6%", row.DriftTargetVsInclusion)
	assert.Equal(t, "855", row.TargetMonetaryValue)
	assert.Equal(t, "50.00%", row.TargetWeightWithinEquity)

	assert.Equal(t, model.Totals{TotalEquityValue: 1000, Cash: 900, Nav: 1900}, view.Totals)
}

func TestComputeInvariants(t *testing.T) {
	lookup := &stubLookup{prices: map[string]int64{
		"005930": 71000,
		"003230": 612000,
		"381970": 4215,
	}}
	engine := New(lookup, 3)

	holdings, err := ParseHoldings([]model.HoldingRecord{
		{Name: "삼성전자", Ticker: "005930", Quantity: 5755, TargetWeight: "2.09%"},
		{Name: "삼양식품", Ticker: "003230", Quantity: 124, TargetWeight: "0.05%"},
		{Name: "카이카", Ticker: "381970", Quantity: 33872, TargetWeight: "12.3%"},
		{Name: "신규", Ticker: model.UnassignedTicker, Quantity: 7, TargetWeight: "0%"},
	})
	require.NoError(t, err)

	metrics, err := engine.Compute(context.Background(), holdings, -1_000_000, 0.7)
	require.NoError(t, err)
	require.Len(t, metrics.Rows, len(holdings))

	var sum int64
	for i, row := range metrics.Rows {
		assert.Equal(t, holdings[i].Name, row.Name, "row order must be preserved")
		assert.Equal(t, row.Quantity*row.CurrentPrice, row.MarketValue)
		assert.InDelta(t, float64(row.MarketValue)/float64(metrics.Nav), row.InclusionWeightOfNav, 1e-12)
		assert.InDelta(t, float64(row.MarketValue)/(float64(metrics.Nav)*0.7), row.InclusionWeightOfEquitySleeve, 1e-12)
		assert.Equal(t, row.TargetWeightOfNav, row.RevisedTargetWeightOfNav)
		assert.Zero(t, row.DriftTargetVsTarget)
		assert.InDelta(t, row.TargetWeightOfNav-row.InclusionWeightOfNav, row.DriftTargetVsInclusion, 1e-12)
		assert.InDelta(t, row.TargetWeightOfNav*float64(metrics.Nav), row.TargetMonetaryValue, 1e-6)
		sum += row.MarketValue
	}

	assert.Equal(t, sum, metrics.TotalEquityValue)
	assert.Equal(t, metrics.TotalEquityValue+metrics.Cash, metrics.Nav)
	assert.Equal(t, int64(1000), metrics.Rows[3].CurrentPrice)
	assert.ElementsMatch(t, []string{"005930", "003230", "381970", model.UnassignedTicker}, lookup.calls)
}

func TestDriftBetweenTargetsIsAlwaysZero(t *testing.T) {
	engine := New(&stubLookup{prices: map[string]int64{"A": 1, "B": 333, "C": 7}}, 1)

	for _, ratio := range []float64{0.5, 0.6, 0.7, 0.8, 0.9, 1, 1.3, -0.4} {
		holdings, err := ParseHoldings([]model.HoldingRecord{
			{Name: "a", Ticker: "A", Quantity: 3, TargetWeight: "33.3333%"},
			{Name: "b", Ticker: "B", Quantity: 11, TargetWeight: "16.14%"},
			{Name: "c", Ticker: "C", Quantity: 0, TargetWeight: "0.07%"},
		})
		require.NoError(t, err)

		metrics, err := engine.Compute(context.Background(), holdings, 12345, ratio)
		require.NoError(t, err)
		for _, row := range metrics.Rows {
			assert.Equal(t, 0.0, row.DriftTargetVsTarget, "ratio %v", ratio)
		}
	}
}

func TestComputeZeroNav(t *testing.T) {
	engine := New(&stubLookup{}, 1)

	metrics, err := engine.Compute(context.Background(), nil, 0, 0.9)
	assert.ErrorIs(t, err, ErrDivisionByZero)
	assert.Empty(t, metrics.Rows)

	view, err := engine.Calculate(context.Background(), nil, 0, 0.9)
	assert.ErrorIs(t, err, ErrDivisionByZero)
	assert.Empty(t, view.Rows)
}

func TestComputeNavCancelledByCash(t *testing.T) {
	engine := New(&stubLookup{prices: map[string]int64{"T": 10}}, 1)
	holdings := []model.Holding{{Name: "X", Ticker: "T", Quantity: 10}}

	_, err := engine.Compute(context.Background(), holdings, -100, 0.9)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestComputeZeroStockRatio(t *testing.T) {
	engine := New(&stubLookup{prices: map[string]int64{"T": 10}}, 1)
	holdings := []model.Holding{{Name: "X", Ticker: "T", Quantity: 10}}

	_, err := engine.Compute(context.Background(), holdings, 100, 0)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestCalculateMalformedWeight(t *testing.T) {
	lookup := &stubLookup{}
	engine := New(lookup, 1)

	records := []model.HoldingRecord{
		{Name: "good", Ticker: "A", Quantity: 1, TargetWeight: "10%"},
		{Name: "broken", Ticker: "B", Quantity: 1, TargetWeight: "abc"},
	}
	view, err := engine.Calculate(context.Background(), records, 100, 0.9)
	require.Error(t, err)
	assert.Empty(t, view.Rows)
	assert.ErrorIs(t, err, ErrParse)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "broken", parseErr.Row)
	assert.Equal(t, "abc", parseErr.Value)
	assert.Contains(t, err.Error(), "broken")
	assert.Empty(t, lookup.calls, "no price should be fetched for an invalid table")
}

func TestComputeCancelledContext(t *testing.T) {
	engine := New(&stubLookup{prices: map[string]int64{"T": 10}}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Compute(ctx, []model.Holding{{Name: "X", Ticker: "T", Quantity: 1}}, 10, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
