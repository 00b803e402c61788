// Package cdx implements the capture index port against the Wayback
// Machine CDX API, with an optional disk cache in front of the network.
package cdx

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"wayrake/internal/core/domain"
	"wayrake/internal/platform/diskcache"
	"wayrake/internal/platform/errors"
	"wayrake/internal/platform/httpclient"
	"wayrake/internal/platform/logx"
)

// DefaultLimit caps discovery queries when the caller gives no limit.
const DefaultLimit = 12

// Config tunes the index client.
type Config struct {
	// Endpoint is the CDX API base URL.
	// Default: https://web.archive.org/cdx/search/cdx.
	Endpoint string

	// Collapse is the CDX collapse field. Default: "digest", which folds
	// identical snapshots into one row.
	Collapse string

	// Timeout is the per-query timeout. Default: 30s.
	Timeout time.Duration

	// RateLimit caps queries per second; 0 means unlimited.
	RateLimit float64

	// UserAgent overrides the default request identity.
	UserAgent string
}

// Client queries the CDX API. It satisfies ports.CaptureIndex.
type Client struct {
	endpoint string
	collapse string
	http     *httpclient.Client
	cache    *diskcache.Store
	logger   logx.Logger
}

// New creates a CDX client. cache may be nil to disable caching.
func New(cfg Config, cache *diskcache.Store, logger logx.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://web.archive.org/cdx/search/cdx"
	}
	if cfg.Collapse == "" {
		cfg.Collapse = "digest"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		endpoint: cfg.Endpoint,
		collapse: cfg.Collapse,
		http: httpclient.New(httpclient.Config{
			Timeout:    cfg.Timeout,
			MaxRetries: 2,
			RateLimit:  cfg.RateLimit,
			UserAgent:  cfg.UserAgent,
		}, logger),
		cache:  cache,
		logger: logger.With("source", "cdx"),
	}
}

// Captures returns the successful (HTTP 200) capture rows recorded for
// original, newest schema first as the API orders them. Responses are cached
// on disk keyed by the full query so repeated runs inside the TTL window
// skip the network.
func (c *Client) Captures(ctx context.Context, original string, f domain.Filters) ([]domain.CdxRow, error) {
	queryURL := c.queryURL(original, f)

	if c.cache != nil {
		if body, ok := c.cache.Get(queryURL); ok {
			rows, err := parseRows(body)
			if err == nil {
				c.logger.Debug("cache hit", "url", original)
				return rows, nil
			}
			// A cached payload the parser rejects is dead weight; drop it
			// and fall through to the network.
			c.logger.Warn("unparseable cache entry, refetching", "url", original, "error", err.Error())
			c.cache.Delete(queryURL)
		}
	}

	body, err := c.http.FetchJSON(ctx, queryURL)
	if err != nil {
		return nil, errors.Wrapf(err, "cdx query for %s failed", original)
	}

	rows, err := parseRows(body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Put(queryURL, body); err != nil {
			// Cache failures never fail the query.
			c.logger.Warn("cache write failed", "url", original, "error", err.Error())
		}
	}

	c.logger.Debug("captures fetched", "url", original, "rows", len(rows))
	return rows, nil
}

// queryURL builds the full CDX query. The field list and the statuscode
// filter are fixed; only the target, window and limit vary per call.
func (c *Client) queryURL(original string, f domain.Filters) string {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := url.Values{}
	q.Set("url", original)
	q.Set("output", "json")
	q.Set("fl", "timestamp,original,mimetype,length")
	q.Set("filter", "statuscode:200")
	q.Set("collapse", c.collapse)
	q.Set("limit", strconv.Itoa(limit))
	if from := f.FromStamp(); from != "" {
		q.Set("from", from)
	}
	if to := f.ToStamp(); to != "" {
		q.Set("to", to)
	}
	return c.endpoint + "?" + q.Encode()
}

// parseRows decodes the CDX JSON array-of-arrays payload. The first row is
// the column header and is skipped; rows with missing fields are dropped.
func parseRows(body []byte) ([]domain.CdxRow, error) {
	var raw [][]string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidResponse, "malformed cdx payload")
	}
	if len(raw) < 2 {
		return nil, nil
	}

	rows := make([]domain.CdxRow, 0, len(raw)-1)
	for _, rec := range raw[1:] {
		if len(rec) < 4 {
			continue
		}
		length, _ := strconv.ParseInt(rec[3], 10, 64)
		rows = append(rows, domain.CdxRow{
			Timestamp: rec[0],
			Original:  rec[1],
			Mimetype:  rec[2],
			Length:    length,
		})
	}
	return rows, nil
}
