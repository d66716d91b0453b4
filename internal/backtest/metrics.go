package backtest

import (
	"math"

	"github.com/yourusername/greedi-fi/internal/models"
)

// Performance metric keys
const (
	MetricFinalPnL     = "final_pnl"
	MetricMaxDrawdown  = "max_drawdown"
	MetricSharpeRatio  = "sharpe_ratio"
	MetricWinRate      = "win_rate"
	MetricProfitFactor = "profit_factor"
)

// CalculatePerformance derives the standard performance metrics from a PnL
// trajectory and its sampled trade list. All edge cases (empty series, no
// trades, zero variance) produce well-defined zero values.
func CalculatePerformance(pnl []float64, trades []models.Trade) map[string]float64 {
	return map[string]float64{
		MetricFinalPnL:     calculateFinalPnL(pnl),
		MetricMaxDrawdown:  calculateMaxDrawdown(pnl),
		MetricSharpeRatio:  calculateSharpeRatio(pnl),
		MetricWinRate:      calculateWinRate(trades),
		MetricProfitFactor: calculateProfitFactor(trades),
	}
}

func calculateFinalPnL(pnl []float64) float64 {
	if len(pnl) == 0 {
		return 0
	}
	return pnl[len(pnl)-1]
}

// calculateMaxDrawdown is the maximum decline from a running peak. It is 0
// for monotonically non-decreasing trajectories.
func calculateMaxDrawdown(pnl []float64) float64 {
	maxDD := 0.0
	peak := 0.0
	for _, p := range pnl {
		if p > peak {
			peak = p
		}
		if drawdown := peak - p; drawdown > maxDD {
			maxDD = drawdown
		}
	}
	return maxDD
}

// calculateSharpeRatio annualizes the mean step return over its standard
// deviation. Defined as 0 for fewer than 2 points or zero variance.
func calculateSharpeRatio(pnl []float64) float64 {
	if len(pnl) < 2 {
		return 0
	}
	steps := diff(pnl)
	std := stddev(steps)
	if std == 0 {
		return 0
	}
	return average(steps) / std * math.Sqrt(252)
}

func calculateWinRate(trades []models.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// calculateProfitFactor is gross profit over gross loss. The denominator is
// floored at 1 rather than guarded against zero, so a run with no losing
// trades reports its gross profit instead of infinity.
func calculateProfitFactor(trades []models.Trade) float64 {
	grossProfit := 0.0
	grossLoss := 0.0
	for _, t := range trades {
		if t.PnL > 0 {
			grossProfit += t.PnL
		} else if t.PnL < 0 {
			grossLoss += t.PnL
		}
	}
	return grossProfit / math.Max(math.Abs(grossLoss), 1)
}

func diff(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	steps := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		steps[i-1] = values[i] - values[i-1]
	}
	return steps
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := average(values)
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
