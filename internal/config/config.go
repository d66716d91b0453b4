// Package config provides configuration management for the Greedi-Fi trading
// platform backend.
package config

import "fmt"

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Feed     FeedConfig     `mapstructure:"feed" validate:"required"`
	Market   MarketConfig   `mapstructure:"market" validate:"required"`
	Backtest BacktestConfig `mapstructure:"backtest" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// ServerConfig represents the HTTP/WebSocket API server configuration
type ServerConfig struct {
	Address             string `mapstructure:"address" validate:"required"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds" validate:"gte=0"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds" validate:"gte=0"`
	HealthPort          string `mapstructure:"health_port"`
}

// FeedConfig represents the upstream market-data feed configuration
type FeedConfig struct {
	URL                string   `mapstructure:"url" validate:"required"`
	APIKey             string   `mapstructure:"api_key"`
	Symbols            []string `mapstructure:"symbols" validate:"required,min=1"`
	SendTimeoutSeconds int      `mapstructure:"send_timeout_seconds" validate:"gt=0"`
	MaxReconnects      int      `mapstructure:"max_reconnects" validate:"gte=0"`
}

// MarketConfig represents the market data cache configuration
type MarketConfig struct {
	SnapshotTTLSeconds int    `mapstructure:"snapshot_ttl_seconds" validate:"gt=0"`
	ExchangeRESTURL    string `mapstructure:"exchange_rest_url"`
	MaintenanceCron    string `mapstructure:"maintenance_cron"`
}

// BacktestConfig represents backtest surface configuration
type BacktestConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	RequestBurst      int     `mapstructure:"request_burst" validate:"gt=0"`
}

// DatabaseConfig represents the optional Postgres store configuration.
// When Enabled is false, strategies and results live in process memory.
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
}

// MetricsConfig represents Prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
