package scraper

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/internal/constants"
	"github.com/kapu/trendformats-go/internal/metrics"
	"github.com/kapu/trendformats-go/internal/util"
	"github.com/kapu/trendformats-go/pkg/errors"
)

// Requester performs one logical vendor call (with retries) and returns the body.
type Requester interface {
	Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

// ClientOption configures a RapidAPIClient.
type ClientOption func(*RapidAPIClient)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *RapidAPIClient) { c.httpClient = hc }
}

// WithBaseURL points the client at another origin (httptest in tests).
func WithBaseURL(u string) ClientOption {
	return func(c *RapidAPIClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithSleep(fn util.SleepFunc) ClientOption {
	return func(c *RapidAPIClient) { c.sleep = fn }
}

func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *RapidAPIClient) { c.metrics = m }
}

func WithBreaker(cb *util.CircuitBreaker) ClientOption {
	return func(c *RapidAPIClient) { c.breaker = cb }
}

// RapidAPIClient talks to one RapidAPI-hosted scraper. Keys are rotated
// round-robin across calls; 429/403 moves on to the next key.
type RapidAPIClient struct {
	platform        string
	host            string
	baseURL         string
	httpClient      *http.Client
	apiKeys         []string
	currentKeyIndex int
	keyMu           sync.Mutex
	breaker         *util.CircuitBreaker
	sleep           util.SleepFunc
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewRapidAPIClient(platform, host, baseURL string, apiKeys []string, logger *zap.Logger, opts ...ClientOption) *RapidAPIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &RapidAPIClient{
		platform:   platform,
		host:       host,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: constants.APIConfig.ScraperTimeout},
		apiKeys:    apiKeys,
		sleep:      util.ContextSleep,
		logger:     logger.With(zap.String("platform", platform)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = util.NewCircuitBreaker(
			"scraper_"+platform,
			constants.CircuitBreakerConfig.FailureThreshold,
			constants.CircuitBreakerConfig.ResetTimeout,
			logger,
		)
	}
	return c
}

func (c *RapidAPIClient) Breaker() *util.CircuitBreaker {
	return c.breaker
}

func (c *RapidAPIClient) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if len(c.apiKeys) == 0 {
		c.metrics.IncVendorRequest(c.platform, endpoint, "no_key")
		return nil, errors.NewAPIError("scraper API key not configured", http.StatusUnauthorized, map[string]any{
			"platform": c.platform,
		})
	}

	if !c.breaker.CanExecute() {
		c.metrics.IncVendorRequest(c.platform, endpoint, "circuit_open")
		return nil, errors.NewAPIError("scraper circuit breaker open", http.StatusServiceUnavailable, map[string]any{
			"platform": c.platform,
		})
	}

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	maxAttempts := util.Min(len(c.apiKeys)*2, 10)
	if maxAttempts < constants.RetryConfig.MaxAttempts {
		maxAttempts = constants.RetryConfig.MaxAttempts
	}

	var lastErr error
	rateLimited := 0

attempts:
	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-RapidAPI-Key", c.nextAPIKey())
		req.Header.Set("X-RapidAPI-Host", c.host)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = errors.NewAPIError("scraper network error", http.StatusBadGateway, map[string]any{
				"endpoint": endpoint,
			}).WithCause(err)
			c.breaker.RecordFailure(0)
			if !c.breaker.CanExecute() {
				break attempts
			}
			if err := c.backoff(ctx, attempt, maxAttempts, "network error", err); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden:
			rateLimited++
			c.logger.Warn("Scraper key rejected, rotating",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			if rateLimited >= len(c.apiKeys) {
				c.breaker.RecordFailure(constants.CircuitBreakerConfig.RateLimitTimeout)
				c.metrics.IncVendorRequest(c.platform, endpoint, "rate_limited")
				return nil, errors.NewKeyRotationError("all scraper API keys rate limited", resp.StatusCode, map[string]any{
					"platform": c.platform,
					"endpoint": endpoint,
				})
			}
			continue

		case resp.StatusCode >= 500:
			lastErr = errors.NewAPIError(fmt.Sprintf("scraper server error: %d", resp.StatusCode), resp.StatusCode, map[string]any{
				"endpoint": endpoint,
			})
			c.breaker.RecordFailure(0)
			if !c.breaker.CanExecute() {
				break attempts
			}
			if err := c.backoff(ctx, attempt, maxAttempts, "server error", lastErr); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode >= 400:
			c.metrics.IncVendorRequest(c.platform, endpoint, "client_error")
			return nil, errors.NewAPIError(fmt.Sprintf("scraper client error: %d", resp.StatusCode), resp.StatusCode, map[string]any{
				"endpoint": endpoint,
				"body":     util.TruncateString(string(body), 200),
			})
		}

		c.breaker.RecordSuccess()
		c.metrics.IncVendorRequest(c.platform, endpoint, "ok")
		return body, nil
	}

	c.metrics.IncVendorRequest(c.platform, endpoint, "error")
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.NewAPIError("scraper request failed", http.StatusBadGateway, map[string]any{
		"endpoint": endpoint,
	})
}

func (c *RapidAPIClient) backoff(ctx context.Context, attempt, maxAttempts int, reason string, cause error) error {
	if attempt >= maxAttempts-1 {
		return nil
	}
	delay := computeDelay(attempt)
	c.logger.Warn("Scraper request failed, retrying",
		zap.String("reason", reason),
		zap.Error(cause),
		zap.Int("attempt", attempt+1),
		zap.Duration("delay", delay),
	)
	return c.sleep(ctx, delay)
}

func (c *RapidAPIClient) nextAPIKey() string {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()

	key := c.apiKeys[c.currentKeyIndex]
	c.currentKeyIndex = (c.currentKeyIndex + 1) % len(c.apiKeys)
	return key
}

func computeDelay(attempt int) time.Duration {
	base := constants.RetryConfig.BaseDelay * time.Duration(math.Pow(2, float64(attempt)))
	jitter := time.Duration(rand.Float64() * float64(constants.RetryConfig.Jitter))
	return base + jitter
}
