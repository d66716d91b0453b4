package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ExchangeClientConfig holds configuration for the exchange REST client
type ExchangeClientConfig struct {
	BaseURL      string
	Currency     string
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	RateLimit    float64 // requests per second
}

// DefaultExchangeClientConfig returns recommended defaults
func DefaultExchangeClientConfig(baseURL string) ExchangeClientConfig {
	return ExchangeClientConfig{
		BaseURL:      baseURL,
		Currency:     "BTC",
		Timeout:      30 * time.Second,
		MaxRetries:   5,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 10 * time.Second,
		RateLimit:    10.0,
	}
}

// ExchangeClient fetches instrument metadata from the exchange REST API with
// retries and client-side rate limiting.
type ExchangeClient struct {
	cfg     ExchangeClientConfig
	client  *retryablehttp.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewExchangeClient creates an exchange REST client
func NewExchangeClient(cfg ExchangeClientConfig, logger *logrus.Logger) *ExchangeClient {
	if logger == nil {
		logger = logrus.New()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil

	return &ExchangeClient{
		cfg:     cfg,
		client:  retryClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		logger:  logger,
	}
}

type instrumentsResponse struct {
	Result []struct {
		InstrumentName string `json:"instrument_name"`
	} `json:"result"`
}

// Instruments lists active instrument names for the configured currency
func (c *ExchangeClient) Instruments(ctx context.Context) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	url := fmt.Sprintf("%s/public/get_instruments?currency=%s&expired=false", c.cfg.BaseURL, c.cfg.Currency)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build instruments request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("instruments request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instruments request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read instruments response: %w", err)
	}

	var parsed instrumentsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode instruments response: %w", err)
	}

	symbols := make([]string, 0, len(parsed.Result))
	for _, instrument := range parsed.Result {
		symbols = append(symbols, instrument.InstrumentName)
	}
	return symbols, nil
}
