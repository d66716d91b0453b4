package fanout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/greedi-fi/internal/feed"
)

func waitForSubscription(t *testing.T, source *feed.MemorySource) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for source.SubscriberCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("bridge never subscribed to the feed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func waitForPayloads(t *testing.T, conn *fakeConn, want int) [][]byte {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		got := conn.received()
		if len(got) >= want {
			return got
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d payloads, got %d", want, len(got))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBridgeRelaysToSubscribers(t *testing.T) {
	source := feed.NewMemorySource()
	registry := NewRegistry()
	bridge := NewBridge(source, registry, []string{feed.OrderBookPrefix + "*"}, nil)

	conn := &fakeConn{}
	registry.Subscribe("orderbook:BTC-PERPETUAL", conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()
	waitForSubscription(t, source)

	source.Publish("orderbook:BTC-PERPETUAL", []byte(`{"seq":1}`))
	source.Publish("orderbook:BTC-PERPETUAL", []byte(`{"seq":2}`))

	got := waitForPayloads(t, conn, 2)
	require.Len(t, got, 2)
	assert.Equal(t, `{"seq":1}`, string(got[0]))
	assert.Equal(t, `{"seq":2}`, string(got[1]))

	assert.NoError(t, bridge.Ping(ctx))

	cancel()
	require.NoError(t, <-done)
	assert.Error(t, bridge.Ping(context.Background()))
}

func TestBridgeChannelIsolation(t *testing.T) {
	source := feed.NewMemorySource()
	registry := NewRegistry()
	bridge := NewBridge(source, registry, []string{feed.OrderBookPrefix + "*", feed.TradesPrefix + "*"}, nil)

	books := &fakeConn{}
	trades := &fakeConn{}
	registry.Subscribe("orderbook:BTC-PERPETUAL", books)
	registry.Subscribe("trades:BTC-PERPETUAL", trades)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)
	waitForSubscription(t, source)

	source.Publish("trades:BTC-PERPETUAL", []byte(`{"price":50000}`))

	got := waitForPayloads(t, trades, 1)
	assert.Equal(t, `{"price":50000}`, string(got[0]))
	assert.Empty(t, books.received())
}

func TestBridgeDropsFailingSubscriber(t *testing.T) {
	source := feed.NewMemorySource()
	registry := NewRegistry()
	bridge := NewBridge(source, registry, []string{feed.OrderBookPrefix + "*"}, nil,
		WithSendTimeout(50*time.Millisecond))

	healthy := &fakeConn{}
	broken := &fakeConn{fail: true}
	registry.Subscribe("orderbook:BTC-PERPETUAL", healthy)
	registry.Subscribe("orderbook:BTC-PERPETUAL", broken)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)
	waitForSubscription(t, source)

	source.Publish("orderbook:BTC-PERPETUAL", []byte(`{"seq":1}`))

	waitForPayloads(t, healthy, 1)

	// the failed member is evicted; the healthy one keeps receiving
	deadline := time.After(2 * time.Second)
	for len(registry.Members("orderbook:BTC-PERPETUAL")) != 1 {
		select {
		case <-deadline:
			t.Fatal("failing subscriber was not removed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	source.Publish("orderbook:BTC-PERPETUAL", []byte(`{"seq":2}`))
	got := waitForPayloads(t, healthy, 2)
	assert.Equal(t, `{"seq":2}`, string(got[1]))
	assert.Empty(t, broken.received())
}

func TestBridgeZeroSubscribersIsNoOp(t *testing.T) {
	source := feed.NewMemorySource()
	registry := NewRegistry()

	var mu sync.Mutex
	var observed []string
	bridge := NewBridge(source, registry, []string{feed.TradesPrefix + "*"}, nil,
		WithObserver(func(channel string, payload []byte) {
			mu.Lock()
			observed = append(observed, channel)
			mu.Unlock()
		}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Run(ctx)
	waitForSubscription(t, source)

	source.Publish("trades:ETH-PERPETUAL", []byte(`{}`))

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(observed)
		mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("observer never invoked")
		case <-time.After(5 * time.Millisecond):
		}
	}
	mu.Lock()
	assert.Equal(t, "trades:ETH-PERPETUAL", observed[0])
	mu.Unlock()
}

func TestBridgeRetryExhaustion(t *testing.T) {
	registry := NewRegistry()
	bridge := NewBridge(failingSource{}, registry, []string{feed.OrderBookPrefix + "*"}, nil,
		WithReconnectConfig(ReconnectConfig{
			MaxRetries:        2,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        2 * time.Millisecond,
			BackoffMultiplier: 1.5,
		}))

	err := bridge.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed disrupted")
}

func TestBridgeCancelDuringBackoff(t *testing.T) {
	registry := NewRegistry()
	bridge := NewBridge(failingSource{}, registry, []string{feed.OrderBookPrefix + "*"}, nil,
		WithReconnectConfig(ReconnectConfig{
			MaxRetries:        0, // unlimited
			InitialBackoff:    time.Hour,
			MaxBackoff:        time.Hour,
			BackoffMultiplier: 1,
		}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop on cancellation")
	}
}

type failingSource struct{}

func (failingSource) Subscribe(ctx context.Context, patterns []string) (<-chan feed.Message, error) {
	return nil, context.DeadlineExceeded
}
