// Package store provides keyed storage for strategies and backtest results.
// The default implementation is an in-process concurrent map; a Postgres
// implementation is available for deployments that want results to survive
// restarts.
package store

import (
	"context"

	"github.com/yourusername/greedi-fi/internal/models"
)

// StrategyStore defines the interface for strategy persistence
type StrategyStore interface {
	Put(ctx context.Context, strategy *models.Strategy) error
	Get(ctx context.Context, id string) (*models.Strategy, error)
	List(ctx context.Context) ([]*models.Strategy, error)
	Delete(ctx context.Context, id string) error
}

// ResultStore defines the interface for backtest result persistence
type ResultStore interface {
	Put(ctx context.Context, result *models.BacktestResult) error
	Get(ctx context.Context, id string) (*models.BacktestResult, error)
	List(ctx context.Context) ([]*models.BacktestResult, error)
}
