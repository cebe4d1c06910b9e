package marketclient

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"
	"resty.dev/v3"

	"niftyfetcher/internal/cache"
	"niftyfetcher/internal/fetcher"
	"niftyfetcher/internal/metrics"
	"niftyfetcher/internal/ratelimit"
)

// Client performs provider GET requests behind a response cache and a rate
// limiter. Cached responses are served without consuming quota; concurrent
// identical requests share a single upstream call. A Client is safe for
// concurrent use by every worker of a batch.
type Client struct {
	http    *resty.Client
	limiter *ratelimit.Limiter
	store   *cache.Store
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Options configures a Client
type Options struct {
	HTTP    *resty.Client
	Limiter *ratelimit.Limiter
	Store   *cache.Store
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// New creates a Client. A nil Limiter means unlimited and a nil Store means no caching.
func New(opts Options) *Client {
	c := &Client{
		http:    opts.HTTP,
		limiter: opts.Limiter,
		store:   opts.Store,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if c.limiter == nil {
		c.limiter = ratelimit.Unlimited()
	}
	if c.store == nil {
		c.store = &cache.Store{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Get returns the raw body of GET path?params, from cache when fresh.
// Non-2xx responses are returned as *fetcher.FetchError and never cached.
func (c *Client) Get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	key := cache.Key("GET", path, params)

	if body, ok := c.lookup(key); ok {
		c.metrics.ObserveProviderRequest("hit")
		return body, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// another caller may have filled the entry while we queued
		if body, ok := c.lookup(key); ok {
			c.metrics.ObserveProviderRequest("hit")
			return body, nil
		}
		return c.fetch(ctx, key, path, params)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Client) lookup(key string) ([]byte, bool) {
	body, ok, err := c.store.Get(key)
	if err != nil {
		c.logger.Warn("response cache read failed", "error", err)
		return nil, false
	}
	return body, ok
}

func (c *Client) fetch(ctx context.Context, key, path string, params map[string]string) ([]byte, error) {
	waited, err := c.limiter.Wait(ctx)
	c.metrics.ObserveRateLimitWait(waited)
	if err != nil {
		c.metrics.ObserveProviderRequest("error")
		return nil, fetcher.NewNetworkError(err)
	}
	if waited > 0 {
		c.logger.Debug("provider call held by rate limiter", "path", path, "waited", waited)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		c.metrics.ObserveProviderRequest("error")
		return nil, fetcher.NewNetworkError(err)
	}

	if !resp.IsSuccess() {
		c.metrics.ObserveProviderRequest("error")
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	c.metrics.ObserveProviderRequest("miss")
	body := resp.Bytes()
	if err := c.store.Set(key, body); err != nil {
		c.logger.Warn("response cache write failed", "path", path, "error", err)
	}
	return body, nil
}
