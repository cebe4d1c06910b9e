package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"niftyfetcher/internal/fetcher"
	"niftyfetcher/internal/yahoo"
)

// MockProvider is a mock market data provider for testing
type MockProvider struct {
	HistoryFunc func(ctx context.Context, ticker string, rng yahoo.Range, interval yahoo.Interval) (*yahoo.Series, error)
	QuoteFunc   func(ctx context.Context, ticker string) (*yahoo.Quote, error)

	mu    sync.Mutex
	calls []string
}

// History implements the provider interface
func (m *MockProvider) History(ctx context.Context, ticker string, rng yahoo.Range, interval yahoo.Interval) (*yahoo.Series, error) {
	m.record(fmt.Sprintf("history:%s:%s:%s", ticker, rng, interval))
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, ticker, rng, interval)
	}
	return &yahoo.Series{Ticker: ticker}, nil
}

// Quote implements the provider interface
func (m *MockProvider) Quote(ctx context.Context, ticker string) (*yahoo.Quote, error) {
	m.record("quote:" + ticker)
	if m.QuoteFunc != nil {
		return m.QuoteFunc(ctx, ticker)
	}
	return &yahoo.Quote{}, nil
}

// Calls returns every call made so far, in call order
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockProvider) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

// NewStaticProvider returns a provider serving one bar and a full quote for
// every ticker except those listed in unknown, which fail as not found
func NewStaticProvider(unknown ...string) *MockProvider {
	missing := make(map[string]bool, len(unknown))
	for _, t := range unknown {
		missing[t] = true
	}

	return &MockProvider{
		HistoryFunc: func(ctx context.Context, ticker string, rng yahoo.Range, interval yahoo.Interval) (*yahoo.Series, error) {
			if missing[ticker] {
				return nil, fetcher.NewNotFoundError(fmt.Sprintf("%s: no data found, symbol may be delisted", ticker))
			}
			return SampleSeries(ticker), nil
		},
		QuoteFunc: func(ctx context.Context, ticker string) (*yahoo.Quote, error) {
			if missing[ticker] {
				return nil, fetcher.NewNotFoundError(fmt.Sprintf("%s: no quote returned", ticker))
			}
			return SampleQuote(), nil
		},
	}
}

// SampleSeries returns a one-bar series
func SampleSeries(ticker string) *yahoo.Series {
	volume := int64(12000)
	return &yahoo.Series{
		Ticker: ticker,
		Bars: []yahoo.Bar{{
			Time:   time.Date(2024, 1, 15, 9, 15, 0, 0, time.FixedZone("IST", 19800)),
			Open:   decimal.NewNullDecimal(decimal.RequireFromString("1620.5")),
			High:   decimal.NewNullDecimal(decimal.RequireFromString("1622")),
			Low:    decimal.NewNullDecimal(decimal.RequireFromString("1619.75")),
			Close:  decimal.NewNullDecimal(decimal.RequireFromString("1621.25")),
			Volume: &volume,
		}},
	}
}

// SampleQuote returns a quote with all seven fields set
func SampleQuote() *yahoo.Quote {
	f := func(v float64) *float64 { return &v }
	volume := int64(4567890)
	return &yahoo.Quote{
		PreviousClose: f(1612.4),
		Open:          f(1620.5),
		Bid:           f(1620.8),
		Ask:           f(1621.0),
		DayLow:        f(1615.0),
		DayHigh:       f(1630.2),
		Volume:        &volume,
	}
}

// NewMockFetch returns a fetch function that answers from results by ticker
// and fails for tickers it does not know
func NewMockFetch(results map[string]fetcher.Result) fetcher.Func {
	return func(ctx context.Context, ticker string) fetcher.Result {
		if r, ok := results[ticker]; ok {
			return r
		}
		return fetcher.Failure(fetcher.NewNotFoundError(ticker))
	}
}
