package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/greedi-fi/internal/models"
	"github.com/yourusername/greedi-fi/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, store.StrategyStore) {
	t.Helper()
	strategies := store.NewMemoryStrategyStore()
	results := store.NewMemoryResultStore()
	engine, err := NewEngine(strategies, results, nil)
	require.NoError(t, err)
	return engine, strategies
}

func seedStrategy(t *testing.T, strategies store.StrategyStore, template string) *models.Strategy {
	t.Helper()
	s := &models.Strategy{
		ID:         models.NewStrategyID(),
		Name:       "engine test",
		Template:   template,
		Parameters: map[string]string{},
	}
	require.NoError(t, strategies.Put(context.Background(), s))
	return s
}

func validRequest(strategyID string) models.BacktestRequest {
	return models.BacktestRequest{
		StrategyID:     strategyID,
		StartDate:      "2024-01-01",
		EndDate:        "2024-03-29",
		InitialCapital: 100000,
		Instrument:     "BTC-PERPETUAL",
	}
}

func TestEngineRun(t *testing.T) {
	engine, strategies := newTestEngine(t)
	s := seedStrategy(t, strategies, TemplateMovingAverageCrossover)

	result, err := engine.Run(context.Background(), validRequest(s.ID))
	require.NoError(t, err)

	assert.Contains(t, result.ID, "backtest_")
	assert.Equal(t, s.ID, result.StrategyID)
	assert.NotEmpty(t, result.Timestamp)
	assert.NotEmpty(t, result.PnLHistory)
	assert.Equal(t, 0.0, result.PnLHistory[0])
	assert.NotEmpty(t, result.TradeHistory)
	assert.Len(t, result.PerformanceMetrics, 5)

	stored, err := engine.Result(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.ID, stored.ID)
}

func TestEngineRunReproducible(t *testing.T) {
	engine, strategies := newTestEngine(t)
	s := seedStrategy(t, strategies, TemplateRSI)

	first, err := engine.Run(context.Background(), validRequest(s.ID))
	require.NoError(t, err)
	second, err := engine.Run(context.Background(), validRequest(s.ID))
	require.NoError(t, err)

	// fresh identity per run, identical simulation output
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.PnLHistory, second.PnLHistory)
	assert.Equal(t, first.TradeHistory, second.TradeHistory)
	assert.Equal(t, first.PerformanceMetrics, second.PerformanceMetrics)
}

func TestEngineRunUnknownStrategy(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Run(context.Background(), validRequest("strategy_missing"))
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
}

func TestEngineRunValidation(t *testing.T) {
	engine, strategies := newTestEngine(t)
	s := seedStrategy(t, strategies, TemplateMovingAverageCrossover)

	tests := []struct {
		name   string
		mutate func(*models.BacktestRequest)
	}{
		{"bad start date", func(r *models.BacktestRequest) { r.StartDate = "01/01/2024" }},
		{"bad end date", func(r *models.BacktestRequest) { r.EndDate = "not-a-date" }},
		{"zero capital", func(r *models.BacktestRequest) { r.InitialCapital = 0 }},
		{"negative capital", func(r *models.BacktestRequest) { r.InitialCapital = -100 }},
		{"empty instrument", func(r *models.BacktestRequest) { r.Instrument = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest(s.ID)
			tc.mutate(&req)
			_, err := engine.Run(context.Background(), req)
			require.Error(t, err)
			assert.True(t, models.IsValidation(err), "expected a validation error, got %v", err)
		})
	}
}

func TestEngineRunEmptyRange(t *testing.T) {
	engine, strategies := newTestEngine(t)
	s := seedStrategy(t, strategies, TemplateMovingAverageCrossover)

	req := validRequest(s.ID)
	req.StartDate = "2024-03-29"
	req.EndDate = "2024-01-01"

	result, err := engine.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, result.PnLHistory)
	assert.Empty(t, result.TradeHistory)
	assert.Equal(t, 0.0, result.PerformanceMetrics[MetricFinalPnL])
}

func TestEngineResults(t *testing.T) {
	engine, strategies := newTestEngine(t)
	s := seedStrategy(t, strategies, TemplateMovingAverageCrossover)

	_, err := engine.Run(context.Background(), validRequest(s.ID))
	require.NoError(t, err)
	_, err = engine.Run(context.Background(), validRequest(s.ID))
	require.NoError(t, err)

	all, err := engine.Results(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNewEngineRequiresStores(t *testing.T) {
	_, err := NewEngine(nil, store.NewMemoryResultStore(), nil)
	assert.Error(t, err)

	_, err = NewEngine(store.NewMemoryStrategyStore(), nil, nil)
	assert.Error(t, err)
}
