package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter bounds outbound provider requests to a quota per time window.
// It is a token bucket holding up to quota tokens that refills one token per
// window. A burst of quota calls goes through at once and call quota+1 waits
// a full window, so no window ever admits more than quota calls.
type Limiter struct {
	limiter *rate.Limiter
	quota   int
	window  time.Duration
}

// New creates a limiter allowing requests calls per window
func New(requests int, window time.Duration) (*Limiter, error) {
	if requests <= 0 {
		return nil, fmt.Errorf("rate limit requests must be positive, got %d", requests)
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", window)
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(window), requests),
		quota:   requests,
		window:  window,
	}, nil
}

// Unlimited returns a limiter that never blocks
func Unlimited() *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
}

// Wait blocks until the limiter permits a request and reports how long the
// caller was held. It returns an error if the context is canceled first.
func (l *Limiter) Wait(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return time.Since(start), err
	}
	return time.Since(start), nil
}

// Allow reports whether a request may happen now, consuming a token if so
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// String describes the configured quota
func (l *Limiter) String() string {
	if l.quota == 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d requests per %s", l.quota, l.window)
}
