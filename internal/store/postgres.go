package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yourusername/greedi-fi/internal/models"
)

// DB wraps a pgx connection pool for the Postgres-backed stores
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a database connection pool from a DSN and verifies
// connectivity before returning.
func NewDB(ctx context.Context, dsn string, maxConns int) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(maxConns)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Ping verifies database connectivity
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close gracefully closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// PostgresStrategyStore implements StrategyStore on PostgreSQL
type PostgresStrategyStore struct {
	db *DB
}

// NewPostgresStrategyStore creates a Postgres-backed strategy store
func NewPostgresStrategyStore(db *DB) *PostgresStrategyStore {
	return &PostgresStrategyStore{db: db}
}

// Put inserts or replaces a strategy
func (s *PostgresStrategyStore) Put(ctx context.Context, strategy *models.Strategy) error {
	if strategy.ID == "" {
		return models.ErrInvalidID
	}
	params, err := json.Marshal(strategy.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	query := `
		INSERT INTO strategies (id, name, template, parameters, uploaded_file)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = $2, template = $3, parameters = $4, uploaded_file = $5
	`
	if _, err := s.db.pool.Exec(ctx, query,
		strategy.ID, strategy.Name, strategy.Template, params, strategy.UploadedFile,
	); err != nil {
		return fmt.Errorf("failed to store strategy: %w", err)
	}
	return nil
}

// Get retrieves a strategy by id
func (s *PostgresStrategyStore) Get(ctx context.Context, id string) (*models.Strategy, error) {
	query := `
		SELECT id, name, template, parameters, uploaded_file
		FROM strategies WHERE id = $1
	`
	strategy := &models.Strategy{}
	var params []byte
	err := s.db.pool.QueryRow(ctx, query, id).Scan(
		&strategy.ID, &strategy.Name, &strategy.Template, &params, &strategy.UploadedFile,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy: %w", err)
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &strategy.Parameters); err != nil {
			return nil, fmt.Errorf("failed to decode parameters: %w", err)
		}
	}
	return strategy, nil
}

// List returns all stored strategies ordered by id
func (s *PostgresStrategyStore) List(ctx context.Context) ([]*models.Strategy, error) {
	query := `
		SELECT id, name, template, parameters, uploaded_file
		FROM strategies ORDER BY id
	`
	rows, err := s.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	defer rows.Close()

	var out []*models.Strategy
	for rows.Next() {
		strategy := &models.Strategy{}
		var params []byte
		if err := rows.Scan(&strategy.ID, &strategy.Name, &strategy.Template, &params, &strategy.UploadedFile); err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &strategy.Parameters); err != nil {
				return nil, fmt.Errorf("failed to decode parameters: %w", err)
			}
		}
		out = append(out, strategy)
	}
	return out, rows.Err()
}

// Delete removes a strategy by id
func (s *PostgresStrategyStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM strategies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete strategy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// PostgresResultStore implements ResultStore on PostgreSQL
type PostgresResultStore struct {
	db *DB
}

// NewPostgresResultStore creates a Postgres-backed backtest result store
func NewPostgresResultStore(db *DB) *PostgresResultStore {
	return &PostgresResultStore{db: db}
}

// Put inserts a backtest result. Results are write-once.
func (s *PostgresResultStore) Put(ctx context.Context, result *models.BacktestResult) error {
	if result.ID == "" {
		return models.ErrInvalidID
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	query := `
		INSERT INTO backtest_results (id, strategy_id, created_at, payload)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.pool.Exec(ctx, query,
		result.ID, result.StrategyID, result.Timestamp, payload,
	); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

// Get retrieves a backtest result by id
func (s *PostgresResultStore) Get(ctx context.Context, id string) (*models.BacktestResult, error) {
	var payload []byte
	err := s.db.pool.QueryRow(ctx, `SELECT payload FROM backtest_results WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	result := &models.BacktestResult{}
	if err := json.Unmarshal(payload, result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return result, nil
}

// List returns all stored results ordered by id
func (s *PostgresResultStore) List(ctx context.Context) ([]*models.BacktestResult, error) {
	rows, err := s.db.pool.Query(ctx, `SELECT payload FROM backtest_results ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var out []*models.BacktestResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		result := &models.BacktestResult{}
		if err := json.Unmarshal(payload, result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		out = append(out, result)
	}
	return out, rows.Err()
}
