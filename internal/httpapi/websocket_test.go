package httpapi

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/greedi-fi/internal/backtest"
	"github.com/yourusername/greedi-fi/internal/config"
	"github.com/yourusername/greedi-fi/internal/fanout"
	"github.com/yourusername/greedi-fi/internal/marketdata"
	"github.com/yourusername/greedi-fi/internal/store"
	"github.com/yourusername/greedi-fi/internal/strategy"
)

func newWSTestServer(t *testing.T) (*httptest.Server, *fanout.Registry, *marketdata.Service) {
	t.Helper()

	strategyStore := store.NewMemoryStrategyStore()
	strategies, err := strategy.NewService(strategyStore, nil)
	require.NoError(t, err)
	engine, err := backtest.NewEngine(strategyStore, store.NewMemoryResultStore(), nil)
	require.NoError(t, err)
	market := marketdata.NewService(time.Minute, nil, nil)
	registry := fanout.NewRegistry()

	srv := NewServer(
		config.ServerConfig{Address: ":0"},
		config.BacktestConfig{RequestsPerSecond: 100, RequestBurst: 100},
		config.MetricsConfig{},
		Deps{
			Strategies: strategies,
			Engine:     engine,
			Market:     market,
			Registry:   registry,
		},
	)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, registry, market
}

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForMembers(t *testing.T, registry *fanout.Registry, channel string, want int) []fanout.Conn {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		members := registry.Members(channel)
		if len(members) == want {
			return members
		}
		select {
		case <-deadline:
			t.Fatalf("channel %s never reached %d members", channel, want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestOrderBookWSSnapshotThenLive(t *testing.T) {
	ts, registry, market := newWSTestServer(t)

	snapshot := `{"bids":[[50000,1]],"asks":[[50010,1]]}`
	market.HandleFeedMessage("orderbook:BTC-PERPETUAL", []byte(snapshot))

	conn := dialWS(t, ts, "/ws/orderbook/BTC-PERPETUAL")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, first, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, snapshot, string(first))

	members := waitForMembers(t, registry, "orderbook:BTC-PERPETUAL", 1)

	live := `{"bids":[[50001,2]],"asks":[[50011,2]]}`
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, members[0].Send(ctx, []byte(live)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, second, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, live, string(second))
}

func TestTradesWSDeliversInOrder(t *testing.T) {
	ts, registry, _ := newWSTestServer(t)

	conn := dialWS(t, ts, "/ws/trades/ETH-PERPETUAL")
	members := waitForMembers(t, registry, "trades:ETH-PERPETUAL", 1)

	payloads := []string{`{"seq":1}`, `{"seq":2}`, `{"seq":3}`}
	for _, p := range payloads {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		require.NoError(t, members[0].Send(ctx, []byte(p)))
		cancel()
	}

	for _, want := range payloads {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, got, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
}

func TestWSDisconnectRemovesSubscription(t *testing.T) {
	ts, registry, _ := newWSTestServer(t)

	conn := dialWS(t, ts, "/ws/trades/BTC-PERPETUAL")
	waitForMembers(t, registry, "trades:BTC-PERPETUAL", 1)

	conn.Close()
	waitForMembers(t, registry, "trades:BTC-PERPETUAL", 0)
}
