package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"niftyfetcher/internal/fetcher"
	"niftyfetcher/internal/metrics"
)

// DefaultPoolSize is the number of tickers fetched at once when none is configured
const DefaultPoolSize = 10

// Coordinator runs a fetch operation over a batch of tickers with bounded
// parallelism and aggregates the per-ticker results
type Coordinator struct {
	poolSize int
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New creates a new Coordinator running at most poolSize fetches at once
func New(poolSize int, logger *slog.Logger, m *metrics.Metrics) *Coordinator {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		poolSize: poolSize,
		logger:   logger,
		metrics:  m,
	}
}

// PoolSize returns the worker limit
func (c *Coordinator) PoolSize() int {
	return c.poolSize
}

// Run executes fn once per ticker and returns one result per ticker, in
// completion order. It never fails: a task that panics is logged and
// reported as an error result. Run returns only after every task finished.
func (c *Coordinator) Run(ctx context.Context, kind string, tickers []string, fn fetcher.Func) []fetcher.Result {
	start := time.Now()
	if len(tickers) == 0 {
		return []fetcher.Result{}
	}

	p := pool.NewWithResults[fetcher.Result]().WithMaxGoroutines(c.poolSize)
	for _, ticker := range tickers {
		p.Go(func() fetcher.Result {
			return c.runOne(ctx, ticker, fn)
		})
	}
	results := p.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	elapsed := time.Since(start)
	c.metrics.ObserveBatch(kind, elapsed)
	c.logger.Info("batch finished",
		"kind", kind,
		"tickers", len(tickers),
		"failed", failed,
		"duration", elapsed)

	return results
}

func (c *Coordinator) runOne(ctx context.Context, ticker string, fn fetcher.Func) fetcher.Result {
	var (
		pc     panics.Catcher
		result fetcher.Result
	)
	pc.Try(func() {
		result = fn(ctx, ticker)
	})

	if r := pc.Recovered(); r != nil {
		err := fmt.Errorf("%s: %w", ticker, r.AsError())
		c.logger.Error(fmt.Sprintf("Error in parallel execution: %v", err), "ticker", ticker)
		return fetcher.Failure(err)
	}
	return result
}
