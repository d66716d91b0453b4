package models

import "time"

// PricePoint is a single business-day observation of a generated price series.
// Sequences are ordered by date and never mutated after generation.
type PricePoint struct {
	Date       time.Time `json:"date"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	Instrument string    `json:"instrument"`
}

// TradeSide enumerates the direction of a simulated trade
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// Trade is a single simulated fill sampled from a backtest run. PnL is the
// incremental contribution at the sampled index, not a cumulative figure.
type Trade struct {
	Timestamp  string    `json:"timestamp"`
	Instrument string    `json:"instrument"`
	Side       TradeSide `json:"side"`
	Price      float64   `json:"price"`
	Size       float64   `json:"size"`
	PnL        float64   `json:"pnl"`
}

// BacktestRequest is the caller-facing request for a backtest run
type BacktestRequest struct {
	StrategyID     string  `json:"strategy_id" validate:"required"`
	StartDate      string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	InitialCapital float64 `json:"initial_capital" validate:"required,gt=0"`
	Instrument     string  `json:"instrument" validate:"required"`
}

// BacktestResult is the immutable record of one backtest invocation.
// len(PnLHistory) always equals the length of the generated price series,
// with PnLHistory[0] == 0.
type BacktestResult struct {
	ID                 string             `json:"id"`
	StrategyID         string             `json:"strategy_id"`
	Timestamp          string             `json:"timestamp"`
	PnLHistory         []float64          `json:"pnl_history"`
	TradeHistory       []Trade            `json:"trade_history"`
	PerformanceMetrics map[string]float64 `json:"performance_metrics"`
}
