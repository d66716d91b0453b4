// Package httpapi exposes the platform's REST and WebSocket surface.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/greedi-fi/internal/backtest"
	"github.com/yourusername/greedi-fi/internal/config"
	"github.com/yourusername/greedi-fi/internal/fanout"
	"github.com/yourusername/greedi-fi/internal/marketdata"
	"github.com/yourusername/greedi-fi/internal/metrics"
	"github.com/yourusername/greedi-fi/internal/models"
	"github.com/yourusername/greedi-fi/internal/strategy"
)

// Server hosts the REST and WebSocket API
type Server struct {
	cfg        config.ServerConfig
	strategies *strategy.Service
	engine     *backtest.Engine
	market     *marketdata.Service
	registry   *fanout.Registry
	validate   *validator.Validate
	limiter    *rate.Limiter
	upgrader   websocket.Upgrader
	logger     *logrus.Logger
	server     *http.Server
	metricsCfg config.MetricsConfig
}

// Deps bundles the collaborators the API server fronts
type Deps struct {
	Strategies *strategy.Service
	Engine     *backtest.Engine
	Market     *marketdata.Service
	Registry   *fanout.Registry
	Logger     *logrus.Logger
}

// NewServer creates the API server. Backtest runs are rate limited per the
// backtest configuration.
func NewServer(cfg config.ServerConfig, btCfg config.BacktestConfig, metricsCfg config.MetricsConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{
		cfg:        cfg,
		strategies: deps.Strategies,
		engine:     deps.Engine,
		market:     deps.Market,
		registry:   deps.Registry,
		validate:   validator.New(),
		limiter:    rate.NewLimiter(rate.Limit(btCfg.RequestsPerSecond), btCfg.RequestBurst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The browser frontend is served from a separate origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:     logger,
		metricsCfg: metricsCfg,
	}
}

// Routes builds the HTTP handler with all routes mounted
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)

	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("POST /api/strategies", s.handleCreateStrategy)
	mux.HandleFunc("GET /api/strategies", s.handleListStrategies)
	mux.HandleFunc("GET /api/strategies/{id}", s.handleGetStrategy)
	mux.HandleFunc("DELETE /api/strategies/{id}", s.handleDeleteStrategy)
	mux.HandleFunc("POST /api/strategy/upload", s.handleUploadStrategy)

	mux.HandleFunc("POST /api/backtest", s.handleRunBacktest)
	mux.HandleFunc("GET /api/backtest", s.handleListBacktests)
	mux.HandleFunc("GET /api/backtest/{id}", s.handleGetBacktest)

	mux.HandleFunc("GET /api/historical-data/{instrument}", s.handleHistoricalData)
	mux.HandleFunc("GET /api/market/symbols", s.handleSymbols)
	mux.HandleFunc("GET /api/market/orderbook/{symbol}", s.handleOrderBookSnapshot)
	mux.HandleFunc("GET /api/market/recent_trades/{symbol}", s.handleRecentTrades)

	mux.HandleFunc("GET /ws/orderbook/{symbol}", s.handleOrderBookWS)
	mux.HandleFunc("GET /ws/trades/{symbol}", s.handleTradesWS)

	if s.metricsCfg.Enabled {
		path := s.metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, metrics.Handler())
	}

	return mux
}

// Start runs the API server until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.Routes(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	s.logger.WithField("address", s.cfg.Address).Info("API server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Greedi-Fi Trading Platform API"})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps the error taxonomy onto HTTP statuses: validation failures
// are 400, missing records 404, everything else 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case models.IsValidation(err):
		status = http.StatusBadRequest
	case models.IsNotFound(err):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
