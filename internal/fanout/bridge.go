package fanout

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/greedi-fi/internal/feed"
	"github.com/yourusername/greedi-fi/internal/metrics"
)

// ReconnectConfig controls feed reconnection behaviour
type ReconnectConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultReconnectConfig returns the default reconnection configuration
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxRetries:        10,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// Observer is notified of every relayed message, independent of subscriber
// delivery. The market-data snapshot cache hangs off this hook.
type Observer func(channel string, payload []byte)

// Bridge consumes a feed source and relays each message to every registered
// subscriber of its channel. A failing subscriber is dropped from the
// registry; it never aborts delivery to the remaining members or the relay
// loop itself.
type Bridge struct {
	source      feed.Source
	registry    *Registry
	patterns    []string
	sendTimeout time.Duration
	reconnect   ReconnectConfig
	observers   []Observer
	logger      *logrus.Logger
	connected   atomic.Bool
}

// BridgeOption customizes bridge construction
type BridgeOption func(*Bridge)

// WithSendTimeout caps how long a single subscriber delivery may block
func WithSendTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) { b.sendTimeout = d }
}

// WithReconnectConfig overrides the default reconnection behaviour
func WithReconnectConfig(cfg ReconnectConfig) BridgeOption {
	return func(b *Bridge) { b.reconnect = cfg }
}

// WithObserver registers a hook invoked for every relayed message
func WithObserver(fn Observer) BridgeOption {
	return func(b *Bridge) { b.observers = append(b.observers, fn) }
}

// NewBridge creates a fan-out bridge over the given source and registry
func NewBridge(source feed.Source, registry *Registry, patterns []string, logger *logrus.Logger, opts ...BridgeOption) *Bridge {
	if logger == nil {
		logger = logrus.New()
	}
	b := &Bridge{
		source:      source,
		registry:    registry,
		patterns:    patterns,
		sendTimeout: 5 * time.Second,
		reconnect:   DefaultReconnectConfig(),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run consumes the feed until ctx is cancelled. A dropped feed connection is
// retried with exponential backoff; exhausting the retry limit is a fatal
// condition reported to the operator via the returned error.
func (b *Bridge) Run(ctx context.Context) error {
	backoff := b.reconnect.InitialBackoff
	attempts := 0

	for {
		msgs, err := b.source.Subscribe(ctx, b.patterns)
		if err == nil {
			b.logger.WithField("patterns", b.patterns).Info("Feed subscription established")
			b.connected.Store(true)
			attempts = 0
			backoff = b.reconnect.InitialBackoff

			for msg := range msgs {
				b.dispatch(ctx, msg)
			}
			b.connected.Store(false)
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Warn("Feed stream closed, reconnecting")
		} else {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.WithError(err).Warn("Feed subscription failed")
		}

		attempts++
		metrics.FeedReconnectsTotal.Inc()
		if b.reconnect.MaxRetries > 0 && attempts > b.reconnect.MaxRetries {
			return fmt.Errorf("feed disrupted: exhausted %d reconnection attempts", b.reconnect.MaxRetries)
		}

		b.logger.WithFields(logrus.Fields{
			"attempt": attempts,
			"backoff": backoff,
		}).Info("Retrying feed subscription")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil
		}

		backoff = time.Duration(float64(backoff) * b.reconnect.BackoffMultiplier)
		if backoff > b.reconnect.MaxBackoff {
			backoff = b.reconnect.MaxBackoff
		}
	}
}

// Ping reports feed connectivity for readiness checks
func (b *Bridge) Ping(ctx context.Context) error {
	if !b.connected.Load() {
		return fmt.Errorf("feed not connected")
	}
	return nil
}

// dispatch delivers one message to the current subscriber snapshot. Delivery
// is sequential within a channel so successive messages reach each member in
// feed order; each send is bounded by the configured timeout.
func (b *Bridge) dispatch(ctx context.Context, msg feed.Message) {
	for _, fn := range b.observers {
		fn(msg.Channel, msg.Payload)
	}

	members := b.registry.Members(msg.Channel)
	metrics.MessagesRelayedTotal.Inc()
	if len(members) == 0 {
		return
	}

	began := time.Now()
	var failed []Conn
	for _, conn := range members {
		sendCtx, cancel := context.WithTimeout(ctx, b.sendTimeout)
		err := conn.Send(sendCtx, msg.Payload)
		cancel()
		if err != nil {
			metrics.DeliveryFailuresTotal.Inc()
			b.logger.WithError(err).WithField("channel", msg.Channel).Debug("Dropping failed subscriber")
			failed = append(failed, conn)
		}
	}
	metrics.FanoutDeliveryLatency.Observe(time.Since(began).Seconds())

	for _, conn := range failed {
		b.registry.Unsubscribe(msg.Channel, conn)
	}
}
