package dexscreener

// HTTP client for the public DexScreener API
// Every request goes through a rate limiter, a circuit breaker and a bounded retry
// Transport layer only - knows endpoints, not scoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"

	"dex-sniper/internal/infra/log"
	"dex-sniper/internal/infra/retry"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.dexscreener.com"

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
	RatePerSecond  float64 // DexScreener allows ~60 req/min on profile endpoints, 300 on pairs
	Burst          int
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		RequestTimeout: 6 * time.Second,
		MaxRetries:     3,
		RatePerSecond:  4,
		Burst:          4,
	}
}

type Client struct {
	baseURL         string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	retry           retry.Options
	maxResponseSize int64
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 6 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "DexScreenerAPI",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.LogWarn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		rateLimiter:     rate.NewLimiter(limit, cfg.Burst),
		circuitBreaker:  breaker,
		maxResponseSize: 5 * 1024 * 1024,
		retry: retry.Options{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  400 * time.Millisecond,
			MaxDelay:   5 * time.Second,
			Retryable:  retryableUpstream,
			OnRetry: func(attempt int, delay time.Duration, err error) {
				log.LogDebug("Retrying DexScreener request",
					zap.Int("attempt", attempt),
					zap.Duration("delay", delay),
					zap.Error(err))
			},
		},
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// retryableUpstream generic transient set plus dropped connections
func retryableUpstream(err error) bool {
	if retry.IsRetryable(err) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET)
}

// get performs a GET against endpoint (path relative to the base URL) and
// returns the body of a 2xx response
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	out, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		var body []byte
		err := retry.Do(ctx, c.retry, func() error {
			b, err := c.doRequest(ctx, endpoint)
			if err != nil {
				return err
			}
			body = b
			return nil
		})
		return body, err
	})
	if err != nil {
		return nil, fmt.Errorf("dexscreener GET %s: %w", endpoint, err)
	}
	return out.([]byte), nil
}

func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	requestID := log.GenerateRequestID()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "dex-sniper/1.0")

	log.LogRequest(requestID, req.Method, endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.LogResponse(requestID, 0, time.Since(start).Milliseconds(), zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		log.LogResponse(requestID, resp.StatusCode, time.Since(start).Milliseconds(), zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.LogResponse(requestID, resp.StatusCode, time.Since(start).Milliseconds(), zap.String("endpoint", endpoint))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       body,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return body, nil
}
