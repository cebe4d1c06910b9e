package fetcher

import (
	"time"

	"resty.dev/v3"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; niftyfetcher/1.0)"
)

// NewHTTPClient creates the HTTP client used for provider calls.
// Failed calls are never retried: a failure is reported once to the caller.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", defaultUserAgent).
		SetRetryCount(0)

	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return client
}
