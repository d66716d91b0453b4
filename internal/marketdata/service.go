// Package marketdata maintains the live view of the market: the latest
// order-book snapshot per symbol and a bounded ring of recent trades, both
// fed from the fan-out bridge.
package marketdata

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/greedi-fi/internal/feed"
	"github.com/yourusername/greedi-fi/internal/models"
)

// maxRecentTrades bounds the per-symbol trade ring
const maxRecentTrades = 100

// DefaultSymbols is the static symbol list served when no exchange client is
// configured.
var DefaultSymbols = []string{
	"BTC-PERPETUAL",
	"ETH-PERPETUAL",
	"SOL-PERPETUAL",
	"BTC-25JUN21",
}

// Service caches order-book snapshots and recent trades per symbol
type Service struct {
	snapshots *cache.Cache
	exchange  *ExchangeClient
	logger    *logrus.Logger

	mu     sync.RWMutex
	trades map[string][]models.MarketTrade
}

// NewService creates a market data service. Snapshots expire after
// snapshotTTL so stale books are not served across feed outages. exchange is
// optional; without it the static symbol list is used.
func NewService(snapshotTTL time.Duration, exchange *ExchangeClient, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		snapshots: cache.New(snapshotTTL, 2*snapshotTTL),
		exchange:  exchange,
		logger:    logger,
		trades:    make(map[string][]models.MarketTrade),
	}
}

// HandleFeedMessage records the payload of a relayed feed message. Wired as a
// bridge observer; malformed payloads are logged and skipped, never fatal.
func (s *Service) HandleFeedMessage(channel string, payload []byte) {
	switch {
	case strings.HasPrefix(channel, feed.OrderBookPrefix):
		symbol := strings.TrimPrefix(channel, feed.OrderBookPrefix)
		s.snapshots.Set(symbol, append([]byte(nil), payload...), cache.DefaultExpiration)
	case strings.HasPrefix(channel, feed.TradesPrefix):
		symbol := strings.TrimPrefix(channel, feed.TradesPrefix)
		s.recordTrade(symbol, payload)
	}
}

func (s *Service) recordTrade(symbol string, payload []byte) {
	var trade models.MarketTrade
	if err := json.Unmarshal(payload, &trade); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Debug("Skipping unparsable trade payload")
		return
	}
	if trade.Symbol == "" {
		trade.Symbol = symbol
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ring := append(s.trades[symbol], trade)
	if len(ring) > maxRecentTrades {
		ring = ring[len(ring)-maxRecentTrades:]
	}
	s.trades[symbol] = ring
}

// OrderBookSnapshot returns the latest cached order-book payload for symbol
func (s *Service) OrderBookSnapshot(symbol string) ([]byte, error) {
	if v, ok := s.snapshots.Get(symbol); ok {
		return v.([]byte), nil
	}
	return nil, models.ErrNotFound
}

// RecentTrades returns up to limit recent trades for symbol, newest first
func (s *Service) RecentTrades(symbol string, limit int) []models.MarketTrade {
	s.mu.RLock()
	ring := s.trades[symbol]
	s.mu.RUnlock()

	if limit <= 0 || limit > len(ring) {
		limit = len(ring)
	}
	out := make([]models.MarketTrade, 0, limit)
	for i := len(ring) - 1; i >= len(ring)-limit; i-- {
		out = append(out, ring[i])
	}
	return out
}

// Symbols lists tradable symbols, preferring the exchange REST catalog when
// configured and falling back to the static list on failure.
func (s *Service) Symbols(ctx context.Context) []string {
	if s.exchange != nil {
		symbols, err := s.exchange.Instruments(ctx)
		if err == nil && len(symbols) > 0 {
			return symbols
		}
		if err != nil {
			s.logger.WithError(err).Warn("Exchange instrument lookup failed, serving static symbol list")
		}
	}
	return DefaultSymbols
}

// PruneExpired drops expired snapshot entries. Called from the maintenance
// scheduler.
func (s *Service) PruneExpired() {
	s.snapshots.DeleteExpired()
}

// SnapshotCount returns the number of live snapshot entries
func (s *Service) SnapshotCount() int {
	return s.snapshots.ItemCount()
}
