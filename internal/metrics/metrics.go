// Package metrics provides the centralized Prometheus metrics registry for
// the trading platform backend.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	MessagesRelayedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "greedi_fi",
		Name:      "messages_relayed_total",
		Help:      "Total number of feed messages relayed to subscribers",
	})
	DeliveryFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "greedi_fi",
		Name:      "delivery_failures_total",
		Help:      "Total number of failed deliveries to individual connections",
	})
	FeedReconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "greedi_fi",
		Name:      "feed_reconnects_total",
		Help:      "Total number of upstream feed reconnection attempts",
	})
	BacktestsRunTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "greedi_fi",
		Name:      "backtests_run_total",
		Help:      "Total number of completed backtest runs",
	})
	StrategiesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "greedi_fi",
		Name:      "strategies_created_total",
		Help:      "Total number of strategies registered",
	})
)

// Gauge metrics
var (
	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "greedi_fi",
		Name:      "active_connections",
		Help:      "Number of currently connected live clients",
	})
	SubscribedChannels = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "greedi_fi",
		Name:      "subscribed_channels",
		Help:      "Number of channels with at least one subscriber entry",
	})
)

// Histogram metrics
var (
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "greedi_fi",
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	FanoutDeliveryLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "greedi_fi",
		Name:      "fanout_delivery_latency_seconds",
		Help:      "Latency of delivering one message to all channel subscribers",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(MessagesRelayedTotal)
		registry.MustRegister(DeliveryFailuresTotal)
		registry.MustRegister(FeedReconnectsTotal)
		registry.MustRegister(BacktestsRunTotal)
		registry.MustRegister(StrategiesCreatedTotal)

		registry.MustRegister(ActiveConnections)
		registry.MustRegister(SubscribedChannels)

		registry.MustRegister(BacktestDuration)
		registry.MustRegister(FanoutDeliveryLatency)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}
