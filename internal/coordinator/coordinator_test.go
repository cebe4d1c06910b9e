package coordinator

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"niftyfetcher/internal/fetcher"
	"niftyfetcher/internal/testutil"
)

func quietLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, nil)), buf
}

func TestNew(t *testing.T) {
	logger, _ := quietLogger()

	coord := New(4, logger, nil)
	if coord == nil {
		t.Fatal("New() returned nil")
	}
	if coord.PoolSize() != 4 {
		t.Errorf("PoolSize() = %d, want 4", coord.PoolSize())
	}

	if got := New(0, logger, nil).PoolSize(); got != DefaultPoolSize {
		t.Errorf("PoolSize() with zero = %d, want %d", got, DefaultPoolSize)
	}
}

func TestRun_Success(t *testing.T) {
	logger, _ := quietLogger()
	fn := testutil.NewMockFetch(map[string]fetcher.Result{
		"INFY.NS":  fetcher.Success("INFY.NS saved"),
		"TCS.NS":   fetcher.Success("TCS.NS saved"),
		"WIPRO.NS": fetcher.Success("WIPRO.NS saved"),
	})

	results := New(10, logger, nil).Run(context.Background(), "live", []string{"INFY.NS", "TCS.NS", "WIPRO.NS"}, fn)

	if len(results) != 3 {
		t.Fatalf("Run() returned %d results, want 3", len(results))
	}

	messages := make([]string, 0, len(results))
	for _, r := range results {
		if !r.OK() {
			t.Errorf("unexpected error result: %+v", r)
		}
		messages = append(messages, r.Message)
	}
	sort.Strings(messages)
	want := []string{"INFY.NS saved", "TCS.NS saved", "WIPRO.NS saved"}
	for i := range want {
		if messages[i] != want[i] {
			t.Errorf("messages[%d] = %q, want %q", i, messages[i], want[i])
		}
	}
}

func TestRun_WithErrors(t *testing.T) {
	logger, _ := quietLogger()
	fn := testutil.NewMockFetch(map[string]fetcher.Result{
		"INFY.NS": fetcher.Success("ok"),
	})

	// Errors are reported per ticker, never for the batch
	results := New(2, logger, nil).Run(context.Background(), "historical", []string{"INFY.NS", "NOPE.NS", "ALSO.NS"}, fn)

	if len(results) != 3 {
		t.Fatalf("Run() returned %d results, want 3", len(results))
	}
	failed := 0
	for _, r := range results {
		if r.Status == fetcher.StatusError {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("got %d error results, want 2", failed)
	}
}

func TestRun_NoTickers(t *testing.T) {
	logger, _ := quietLogger()

	results := New(10, logger, nil).Run(context.Background(), "live", nil, testutil.NewMockFetch(nil))
	if results == nil {
		t.Fatal("Run() returned nil, want empty slice")
	}
	if len(results) != 0 {
		t.Errorf("Run() returned %d results, want 0", len(results))
	}
}

func TestRun_PanicBecomesErrorResult(t *testing.T) {
	logger, logs := quietLogger()
	fn := func(ctx context.Context, ticker string) fetcher.Result {
		if ticker == "BOOM.NS" {
			panic("nil series")
		}
		return fetcher.Success(ticker)
	}

	results := New(3, logger, nil).Run(context.Background(), "live", []string{"A.NS", "BOOM.NS", "B.NS"}, fn)

	if len(results) != 3 {
		t.Fatalf("Run() returned %d results, want 3", len(results))
	}

	var panicked *fetcher.Result
	for i := range results {
		if results[i].Status == fetcher.StatusError {
			panicked = &results[i]
		}
	}
	if panicked == nil {
		t.Fatal("expected an error result for the panicking task")
	}
	if !strings.Contains(panicked.Message, "BOOM.NS") || !strings.Contains(panicked.Message, "nil series") {
		t.Errorf("Message = %q, want ticker and panic value", panicked.Message)
	}
	if !strings.Contains(logs.String(), "Error in parallel execution") {
		t.Errorf("panic was not logged: %s", logs.String())
	}
}

func TestRun_BoundedConcurrency(t *testing.T) {
	logger, _ := quietLogger()
	const poolSize = 3

	var running, peak atomic.Int32
	fn := func(ctx context.Context, ticker string) fetcher.Result {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return fetcher.Success(ticker)
	}

	tickers := make([]string, 25)
	for i := range tickers {
		tickers[i] = fmt.Sprintf("T%02d.NS", i)
	}

	start := time.Now()
	results := New(poolSize, logger, nil).Run(context.Background(), "live", tickers, fn)

	if len(results) != len(tickers) {
		t.Fatalf("Run() returned %d results, want %d", len(results), len(tickers))
	}
	if got := peak.Load(); got > poolSize {
		t.Errorf("peak concurrency = %d, want at most %d", got, poolSize)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("batch took %s with fast fetches", elapsed)
	}
}

func TestRun_ConcurrentExecution(t *testing.T) {
	logger, _ := quietLogger()
	delays := map[string]time.Duration{
		"SLOW.NS": 100 * time.Millisecond,
		"MID.NS":  60 * time.Millisecond,
		"FAST.NS": 20 * time.Millisecond,
	}
	fn := func(ctx context.Context, ticker string) fetcher.Result {
		time.Sleep(delays[ticker])
		return fetcher.Success(ticker)
	}

	start := time.Now()
	results := New(3, logger, nil).Run(context.Background(), "live", []string{"SLOW.NS", "MID.NS", "FAST.NS"}, fn)

	if len(results) != 3 {
		t.Fatalf("Run() returned %d results, want 3", len(results))
	}
	// Sequential execution would take at least 180ms
	if elapsed := time.Since(start); elapsed >= 170*time.Millisecond {
		t.Errorf("Run() took %s, fetches did not overlap", elapsed)
	}
}
