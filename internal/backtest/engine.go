package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/greedi-fi/internal/metrics"
	"github.com/yourusername/greedi-fi/internal/models"
	"github.com/yourusername/greedi-fi/internal/store"
)

// Engine orchestrates backtest runs: series generation, simulation, metric
// calculation and result persistence. Invocations are stateless and may run
// fully in parallel.
type Engine struct {
	strategies store.StrategyStore
	results    store.ResultStore
	logger     *logrus.Logger
}

// NewEngine creates a new backtest engine
func NewEngine(strategies store.StrategyStore, results store.ResultStore, logger *logrus.Logger) (*Engine, error) {
	if strategies == nil {
		return nil, fmt.Errorf("strategy store is required")
	}
	if results == nil {
		return nil, fmt.Errorf("result store is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		strategies: strategies,
		results:    results,
		logger:     logger,
	}, nil
}

// Run executes a backtest for the referenced strategy. PnL and trade data
// are reproducible per strategy; the result id and timestamp are fresh on
// every call.
func (e *Engine) Run(ctx context.Context, req models.BacktestRequest) (*models.BacktestResult, error) {
	began := time.Now()

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if req.InitialCapital <= 0 {
		return nil, models.NewValidationError("initial_capital", "must be greater than zero")
	}
	if req.Instrument == "" {
		return nil, models.NewValidationError("instrument", "instrument is required")
	}

	strategy, err := e.strategies.Get(ctx, req.StrategyID)
	if err != nil {
		return nil, err
	}

	series := GenerateSeries(req.Instrument, start, end, SampleDataSeed)

	pnl, trades, err := Simulate(strategy.Template, strategy.Parameters, series, req.InitialCapital, strategy.ID)
	if err != nil {
		return nil, err
	}

	result := &models.BacktestResult{
		ID:                 models.NewBacktestID(),
		StrategyID:         strategy.ID,
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		PnLHistory:         pnl,
		TradeHistory:       trades,
		PerformanceMetrics: CalculatePerformance(pnl, trades),
	}

	if err := e.results.Put(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to store backtest result: %w", err)
	}

	metrics.BacktestsRunTotal.Inc()
	metrics.BacktestDuration.Observe(time.Since(began).Seconds())

	e.logger.WithFields(logrus.Fields{
		"result_id":   result.ID,
		"strategy_id": strategy.ID,
		"template":    strategy.Template,
		"days":        len(series),
		"trades":      len(trades),
		"final_pnl":   result.PerformanceMetrics[MetricFinalPnL],
	}).Info("Backtest run completed")

	return result, nil
}

// Result retrieves a previously stored backtest result
func (e *Engine) Result(ctx context.Context, id string) (*models.BacktestResult, error) {
	return e.results.Get(ctx, id)
}

// Results lists all stored backtest results
func (e *Engine) Results(ctx context.Context) ([]*models.BacktestResult, error) {
	return e.results.List(ctx)
}

func parseDateRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return time.Time{}, time.Time{}, models.NewValidationError("start_date", "must be YYYY-MM-DD, got %q", startDate)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return time.Time{}, time.Time{}, models.NewValidationError("end_date", "must be YYYY-MM-DD, got %q", endDate)
	}
	// start after end yields an empty series rather than an error
	return start, end, nil
}
