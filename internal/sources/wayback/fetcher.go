// Package wayback fetches archived capture pages from the replay service.
package wayback

import (
	"context"
	"time"

	"wayrake/internal/platform/errors"
	"wayrake/internal/platform/httpclient"
	"wayrake/internal/platform/logx"
)

// Config tunes the page fetcher.
type Config struct {
	// Timeout is the per-page timeout. Default: 20s.
	Timeout time.Duration

	// RateLimit caps page fetches per second across all workers;
	// 0 means unlimited.
	RateLimit float64

	// UserAgent overrides the default request identity.
	UserAgent string
}

// Fetcher retrieves capture page bodies. It satisfies ports.PageFetcher.
// Failures are reported to the caller, which degrades per page instead of
// retrying, so the client runs without retries.
type Fetcher struct {
	http   *httpclient.Client
	logger logx.Logger
}

// NewFetcher creates a page fetcher from cfg.
func NewFetcher(cfg Config, logger logx.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Fetcher{
		http: httpclient.New(httpclient.Config{
			Timeout:        cfg.Timeout,
			MaxRetries:     0,
			RateLimit:      cfg.RateLimit,
			RateLimitBurst: 4,
			UserAgent:      cfg.UserAgent,
		}, logger),
		logger: logger.With("source", "wayback"),
	}
}

// Body returns the text body of url.
func (f *Fetcher) Body(ctx context.Context, url string) (string, error) {
	body, err := f.http.FetchText(ctx, url)
	if err != nil {
		return "", errors.Wrapf(err, "page fetch for %s failed", url)
	}
	f.logger.Debug("page fetched", "url", url, "bytes", len(body))
	return string(body), nil
}
