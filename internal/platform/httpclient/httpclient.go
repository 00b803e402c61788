// Package httpclient provides the shared HTTP client: timeouts, retry with
// exponential backoff, and optional token bucket rate limiting.
package httpclient

import (
	"context"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	"wayrake/internal/platform/errors"
	"wayrake/internal/platform/logx"
	"wayrake/internal/platform/rate"
)

// Config holds the client tuning knobs. Zero values fall back to defaults.
type Config struct {
	// Timeout is the per-request timeout. Default: 30s.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the first request.
	// 0 disables retries.
	MaxRetries int

	// RetryBackoff is the initial backoff; it doubles per attempt up to
	// MaxRetryBackoff. Defaults: 1s and 30s.
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration

	// UserAgent is sent on every request. Default: "wayrake/1.0".
	UserAgent string

	// RateLimit caps outgoing requests per second; 0 means unlimited.
	RateLimit      float64
	RateLimitBurst int
}

// Client wraps http.Client with the pipeline's retry and courtesy policy.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      logx.Logger
	config      Config
}

// New creates a client from cfg, applying defaults for zero values.
func New(cfg Config, logger logx.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 1 * time.Second
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "wayrake/1.0"
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 1
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.New(cfg.RateLimit, cfg.RateLimitBurst)
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: limiter,
		logger:      logger.With("component", "httpclient"),
		config:      cfg,
	}
}

// Do performs a request with rate limiting and retry on network errors and
// retryable statuses (429/502/503/504).
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return nil, errors.Wrap(err, "rate limit wait failed")
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create request for %s %s", method, url)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(start)

		if err != nil {
			c.logger.Warn("request failed",
				"method", method,
				"url", url,
				"attempt", attempt+1,
				"error", err.Error(),
				"duration_ms", duration.Milliseconds(),
			)
			lastErr = timeoutOr(err)
			if attempt >= c.config.MaxRetries {
				break
			}
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, errors.Wrap(err, "backoff interrupted")
			}
			continue
		}

		c.logger.Debug("response received",
			"method", method,
			"url", url,
			"status", resp.StatusCode,
			"duration_ms", duration.Milliseconds(),
		)

		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = errors.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		if attempt >= c.config.MaxRetries {
			break
		}
		c.logger.Warn("retryable status",
			"method", method,
			"url", url,
			"status", resp.StatusCode,
			"attempt", attempt+1,
		)
		if err := c.backoff(ctx, attempt); err != nil {
			return nil, errors.Wrap(err, "backoff interrupted")
		}
	}

	return nil, errors.Wrapf(lastErr, "request failed after %d attempts", c.config.MaxRetries+1)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, headers)
}

// Head performs a HEAD request.
func (c *Client) Head(ctx context.Context, url string) (*http.Response, error) {
	return c.Do(ctx, http.MethodHead, url, nil)
}

// FetchText performs a GET, validates the status, and returns the body.
func (c *Client) FetchText(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Get(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if err := CheckStatus(resp); err != nil {
		resp.Body.Close()
		return nil, errors.Wrapf(err, "request to %s failed", url)
	}
	return ReadBody(resp)
}

// FetchJSON performs a GET with a JSON accept header, validates the status,
// and returns the body.
func (c *Client) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.Get(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, err
	}
	if err := CheckStatus(resp); err != nil {
		resp.Body.Close()
		return nil, errors.Wrapf(err, "request to %s failed", url)
	}
	return ReadBody(resp)
}

// timeoutOr maps deadline and transport timeouts onto the ErrTimeout
// sentinel so callers can match it; other errors pass through unchanged.
func timeoutOr(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return errors.Wrap(errors.ErrTimeout, err.Error())
	}
	return err
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoff sleeps for the exponential delay of the given attempt, bounded by
// MaxRetryBackoff and the context.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	d := c.config.RetryBackoff * time.Duration(math.Pow(2, float64(attempt)))
	if d > c.config.MaxRetryBackoff {
		d = c.config.MaxRetryBackoff
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ReadBody reads and closes the response body.
func ReadBody(resp *http.Response) ([]byte, error) {
	if resp == nil {
		return nil, errors.New("response is nil")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}
	return body, nil
}

// CheckStatus validates a 2xx status and maps known failures onto the
// error taxonomy.
func CheckStatus(resp *http.Response) error {
	if resp == nil {
		return errors.New("response is nil")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return errors.Wrapf(errors.ErrRateLimit, "HTTP %d", resp.StatusCode)
	case http.StatusNotFound:
		return errors.Wrapf(errors.ErrNotFound, "HTTP %d", resp.StatusCode)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return errors.Wrapf(errors.ErrServiceUnavailable, "HTTP %d", resp.StatusCode)
	default:
		return errors.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
}
