package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/greedi-fi/internal/models"
)

func TestCalculatePerformanceEmptyInputs(t *testing.T) {
	perf := CalculatePerformance(nil, nil)

	assert.Equal(t, 0.0, perf[MetricFinalPnL])
	assert.Equal(t, 0.0, perf[MetricMaxDrawdown])
	assert.Equal(t, 0.0, perf[MetricSharpeRatio])
	assert.Equal(t, 0.0, perf[MetricWinRate])
	assert.Equal(t, 0.0, perf[MetricProfitFactor])
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name string
		pnl  []float64
		want float64
	}{
		{"non-decreasing", []float64{0, 10, 10, 25, 40}, 0},
		{"single dip", []float64{0, 100, 60, 120}, 40},
		{"deepest of several", []float64{0, 50, 20, 80, 75, 10}, 70},
		{"all negative", []float64{0, -10, -30, -20}, 30},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, calculateMaxDrawdown(tc.pnl))
		})
	}
}

func TestSharpeRatio(t *testing.T) {
	assert.Equal(t, 0.0, calculateSharpeRatio(nil))
	assert.Equal(t, 0.0, calculateSharpeRatio([]float64{5}))

	// constant steps have zero variance
	assert.Equal(t, 0.0, calculateSharpeRatio([]float64{0, 10, 20, 30}))

	// steps 10, -10: mean 0, std 10
	assert.Equal(t, 0.0, calculateSharpeRatio([]float64{0, 10, 0}))

	// steps 30, 10: mean 20, std 10
	got := calculateSharpeRatio([]float64{0, 30, 40})
	assert.InDelta(t, 2*math.Sqrt(252), got, 1e-9)
}

func TestWinRate(t *testing.T) {
	assert.Equal(t, 0.0, calculateWinRate(nil))

	trades := []models.Trade{
		{PnL: 10},
		{PnL: -5},
		{PnL: 0},
		{PnL: 3},
	}
	assert.Equal(t, 0.5, calculateWinRate(trades))
}

func TestProfitFactorDenominatorFloor(t *testing.T) {
	// no losing trades: denominator floors at 1, so profit factor equals
	// gross profit rather than infinity
	allWins := []models.Trade{{PnL: 12}, {PnL: 8}}
	assert.Equal(t, 20.0, calculateProfitFactor(allWins))

	// small gross loss below 1 is still floored
	smallLoss := []models.Trade{{PnL: 10}, {PnL: -0.5}}
	assert.Equal(t, 10.0, calculateProfitFactor(smallLoss))

	// gross loss above 1 divides normally
	mixed := []models.Trade{{PnL: 30}, {PnL: -10}, {PnL: -5}}
	assert.InDelta(t, 2.0, calculateProfitFactor(mixed), 1e-9)
}

func TestCalculatePerformanceEndToEnd(t *testing.T) {
	series := testSeries(t, 50)

	pnl, trades, err := Simulate(TemplateMovingAverageCrossover, nil, series, 100000, "strategy_perf")
	require.NoError(t, err)

	perf := CalculatePerformance(pnl, trades)
	require.Len(t, perf, 5)

	assert.Equal(t, pnl[len(pnl)-1], perf[MetricFinalPnL])
	assert.GreaterOrEqual(t, perf[MetricMaxDrawdown], 0.0)
	assert.GreaterOrEqual(t, perf[MetricWinRate], 0.0)
	assert.LessOrEqual(t, perf[MetricWinRate], 1.0)
	assert.GreaterOrEqual(t, perf[MetricProfitFactor], 0.0)
	assert.False(t, math.IsNaN(perf[MetricSharpeRatio]))
	assert.False(t, math.IsInf(perf[MetricSharpeRatio], 0))
}
