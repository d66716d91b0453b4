package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/greedi-fi/internal/models"
)

func TestServiceOrderBookSnapshot(t *testing.T) {
	svc := NewService(time.Minute, nil, nil)

	_, err := svc.OrderBookSnapshot("BTC-PERPETUAL")
	assert.ErrorIs(t, err, models.ErrNotFound)

	payload := []byte(`{"bids":[[50000,1.5]],"asks":[[50010,2.0]]}`)
	svc.HandleFeedMessage("orderbook:BTC-PERPETUAL", payload)

	got, err := svc.OrderBookSnapshot("BTC-PERPETUAL")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// latest payload wins
	svc.HandleFeedMessage("orderbook:BTC-PERPETUAL", []byte(`{"bids":[]}`))
	got, err = svc.OrderBookSnapshot("BTC-PERPETUAL")
	require.NoError(t, err)
	assert.Equal(t, `{"bids":[]}`, string(got))

	assert.Equal(t, 1, svc.SnapshotCount())
}

func TestServiceSnapshotExpiry(t *testing.T) {
	svc := NewService(10*time.Millisecond, nil, nil)

	svc.HandleFeedMessage("orderbook:ETH-PERPETUAL", []byte(`{}`))
	time.Sleep(30 * time.Millisecond)

	_, err := svc.OrderBookSnapshot("ETH-PERPETUAL")
	assert.ErrorIs(t, err, models.ErrNotFound)

	svc.PruneExpired()
	assert.Equal(t, 0, svc.SnapshotCount())
}

func TestServiceRecentTrades(t *testing.T) {
	svc := NewService(time.Minute, nil, nil)

	for i := 0; i < 5; i++ {
		payload, err := json.Marshal(models.MarketTrade{Price: float64(100 + i), Amount: 1})
		require.NoError(t, err)
		svc.HandleFeedMessage("trades:BTC-PERPETUAL", payload)
	}

	trades := svc.RecentTrades("BTC-PERPETUAL", 3)
	require.Len(t, trades, 3)
	// newest first
	assert.Equal(t, 104.0, trades[0].Price)
	assert.Equal(t, 103.0, trades[1].Price)
	assert.Equal(t, 102.0, trades[2].Price)

	// symbol filled from the channel when absent from the payload
	assert.Equal(t, "BTC-PERPETUAL", trades[0].Symbol)

	// limit of zero or beyond the ring returns everything
	assert.Len(t, svc.RecentTrades("BTC-PERPETUAL", 0), 5)
	assert.Len(t, svc.RecentTrades("BTC-PERPETUAL", 50), 5)
	assert.Empty(t, svc.RecentTrades("ETH-PERPETUAL", 10))
}

func TestServiceTradeRingBounded(t *testing.T) {
	svc := NewService(time.Minute, nil, nil)

	for i := 0; i < 150; i++ {
		payload := []byte(fmt.Sprintf(`{"price":%d,"amount":1}`, i))
		svc.HandleFeedMessage("trades:BTC-PERPETUAL", payload)
	}

	trades := svc.RecentTrades("BTC-PERPETUAL", 0)
	require.Len(t, trades, 100)
	assert.Equal(t, 149.0, trades[0].Price)
	assert.Equal(t, 50.0, trades[99].Price)
}

func TestServiceSkipsUnparsableTrade(t *testing.T) {
	svc := NewService(time.Minute, nil, nil)

	svc.HandleFeedMessage("trades:BTC-PERPETUAL", []byte(`not json`))
	assert.Empty(t, svc.RecentTrades("BTC-PERPETUAL", 0))
}

func TestServiceSymbolsStaticFallback(t *testing.T) {
	svc := NewService(time.Minute, nil, nil)

	symbols := svc.Symbols(context.Background())
	assert.Equal(t, DefaultSymbols, symbols)
	assert.Contains(t, symbols, "BTC-PERPETUAL")
}
