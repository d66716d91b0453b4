// Package main provides the entry point for the trading platform API server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/greedi-fi/internal/backtest"
	"github.com/yourusername/greedi-fi/internal/config"
	"github.com/yourusername/greedi-fi/internal/fanout"
	"github.com/yourusername/greedi-fi/internal/feed"
	"github.com/yourusername/greedi-fi/internal/health"
	"github.com/yourusername/greedi-fi/internal/httpapi"
	"github.com/yourusername/greedi-fi/internal/logger"
	"github.com/yourusername/greedi-fi/internal/marketdata"
	"github.com/yourusername/greedi-fi/internal/scheduler"
	"github.com/yourusername/greedi-fi/internal/store"
	"github.com/yourusername/greedi-fi/internal/strategy"
)

func main() {
	cfg, err := config.Load(os.Getenv("GREEDI_FI_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := logger.New(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
	}).Info("Greedi-Fi platform backend starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores: in-process maps by default, Postgres when enabled
	var (
		strategyStore store.StrategyStore
		resultStore   store.ResultStore
		db            *store.DB
	)
	if cfg.Database.Enabled {
		db, err = store.NewDB(ctx, cfg.GetDatabaseDSN(), cfg.Database.MaxConnections)
		if err != nil {
			appLog.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()
		strategyStore = store.NewPostgresStrategyStore(db)
		resultStore = store.NewPostgresResultStore(db)
		appLog.Info("Database connection established")
	} else {
		strategyStore = store.NewMemoryStrategyStore()
		resultStore = store.NewMemoryResultStore()
	}

	strategies, err := strategy.NewService(strategyStore, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to create strategy service")
	}

	engine, err := backtest.NewEngine(strategyStore, resultStore, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to create backtest engine")
	}

	// Market data cache, fed by the fan-out bridge
	var exchange *marketdata.ExchangeClient
	if cfg.Market.ExchangeRESTURL != "" {
		exchange = marketdata.NewExchangeClient(marketdata.DefaultExchangeClientConfig(cfg.Market.ExchangeRESTURL), appLog)
	}
	market := marketdata.NewService(time.Duration(cfg.Market.SnapshotTTLSeconds)*time.Second, exchange, appLog)

	registry := fanout.NewRegistry()
	source := feed.NewWSSource(feed.WSConfig{
		URL:     cfg.Feed.URL,
		Symbols: cfg.Feed.Symbols,
	}, appLog)

	reconnect := fanout.DefaultReconnectConfig()
	reconnect.MaxRetries = cfg.Feed.MaxReconnects
	bridge := fanout.NewBridge(
		source,
		registry,
		[]string{feed.OrderBookPrefix + "*", feed.TradesPrefix + "*"},
		appLog,
		fanout.WithSendTimeout(time.Duration(cfg.Feed.SendTimeoutSeconds)*time.Second),
		fanout.WithReconnectConfig(reconnect),
		fanout.WithObserver(market.HandleFeedMessage),
	)

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Port:        cfg.Server.HealthPort,
		Logger:      appLog,
	})
	healthServer.AddPinger("feed", bridge)
	if db != nil {
		healthServer.AddPinger("database", db)
	}
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}

	maintenance := scheduler.NewScheduler(market, registry, appLog)
	cronExpr := cfg.Market.MaintenanceCron
	if cronExpr == "" {
		cronExpr = "@every 5m"
	}
	if err := maintenance.ScheduleMaintenance(cronExpr); err != nil {
		appLog.WithError(err).Fatal("Failed to schedule maintenance")
	}
	maintenance.Start()
	defer maintenance.Stop()

	// The bridge owns feed reconnection; exhausting retries is fatal
	bridgeErr := make(chan error, 1)
	go func() {
		bridgeErr <- bridge.Run(ctx)
	}()

	api := httpapi.NewServer(cfg.Server, cfg.Backtest, cfg.Metrics, httpapi.Deps{
		Strategies: strategies,
		Engine:     engine,
		Market:     market,
		Registry:   registry,
		Logger:     appLog,
	})
	apiErr := make(chan error, 1)
	go func() {
		apiErr <- api.Start(ctx)
	}()

	healthServer.SetReady(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		appLog.WithField("signal", sig.String()).Info("Shutting down")
	case err := <-bridgeErr:
		if err != nil {
			appLog.WithError(err).Error("Fan-out bridge terminated")
		}
	case err := <-apiErr:
		if err != nil {
			appLog.WithError(err).Error("API server terminated")
		}
	}

	healthServer.SetReady(false)
	cancel()
}
