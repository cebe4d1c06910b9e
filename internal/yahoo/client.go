package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"
	_ "time/tzdata" // exchange zones must resolve without a system zoneinfo

	"github.com/shopspring/decimal"

	"niftyfetcher/internal/fetcher"
)

// Getter performs a GET against the provider and returns the raw body
type Getter interface {
	Get(ctx context.Context, path string, params map[string]string) ([]byte, error)
}

// Client reads chart and quote data from the Yahoo Finance HTTP API
type Client struct {
	getter Getter
}

// NewClient creates a provider client on top of getter
func NewClient(getter Getter) *Client {
	return &Client{getter: getter}
}

// History returns the price bars for ticker over rng at the given interval.
// A ticker with no bars in the window yields an empty series, not an error.
func (c *Client) History(ctx context.Context, ticker string, rng Range, interval Interval) (*Series, error) {
	body, err := c.getter.Get(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), map[string]string{
		"range":    string(rng),
		"interval": string(interval),
	})
	if err != nil {
		var fe *fetcher.FetchError
		if errors.As(err, &fe) && fe.Type == fetcher.ErrorTypeNotFound {
			return nil, fetcher.NewNotFoundError(fmt.Sprintf("%s: no data found, symbol may be delisted", ticker))
		}
		return nil, err
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fetcher.NewValidationError(fmt.Sprintf("decoding chart for %s", ticker), err)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, e.asFetchError(ticker)
	}

	series := &Series{Ticker: ticker}
	if len(resp.Chart.Result) == 0 {
		return series, nil
	}

	result := resp.Chart.Result[0]
	loc := result.location()
	var cols struct {
		open, high, low, close []*float64
		volume                 []*int64
	}
	if len(result.Indicators.Quote) > 0 {
		q := result.Indicators.Quote[0]
		cols.open, cols.high, cols.low, cols.close, cols.volume = q.Open, q.High, q.Low, q.Close, q.Volume
	}

	series.Bars = make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		series.Bars = append(series.Bars, Bar{
			Time:   time.Unix(ts, 0).In(loc),
			Open:   price(cols.open, i),
			High:   price(cols.high, i),
			Low:    price(cols.low, i),
			Close:  price(cols.close, i),
			Volume: volume(cols.volume, i),
		})
	}
	return series, nil
}

// Quote returns the current-day quote snapshot for ticker
func (c *Client) Quote(ctx context.Context, ticker string) (*Quote, error) {
	body, err := c.getter.Get(ctx, "/v7/finance/quote", map[string]string{
		"symbols": ticker,
	})
	if err != nil {
		return nil, err
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fetcher.NewValidationError(fmt.Sprintf("decoding quote for %s", ticker), err)
	}
	if e := resp.QuoteResponse.Error; e != nil {
		return nil, e.asFetchError(ticker)
	}

	for _, r := range resp.QuoteResponse.Result {
		if r.Symbol != "" && r.Symbol != ticker {
			continue
		}
		return &Quote{
			PreviousClose: r.RegularMarketPreviousClose,
			Open:          r.RegularMarketOpen,
			Bid:           r.Bid,
			Ask:           r.Ask,
			DayLow:        r.RegularMarketDayLow,
			DayHigh:       r.RegularMarketDayHigh,
			Volume:        r.RegularMarketVolume,
		}, nil
	}
	return nil, fetcher.NewNotFoundError(fmt.Sprintf("%s: no quote returned", ticker))
}

func (r chartResult) location() *time.Location {
	if name := r.Meta.ExchangeTimezoneName; name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if r.Meta.GMTOffset != 0 {
		return time.FixedZone("", r.Meta.GMTOffset)
	}
	return time.UTC
}

func (e *apiError) asFetchError(ticker string) *fetcher.FetchError {
	msg := e.Description
	if msg == "" {
		msg = e.Code
	}
	if msg == "" {
		msg = "provider error"
	}
	msg = fmt.Sprintf("%s: %s", ticker, msg)

	if e.Code == "Not Found" {
		return fetcher.NewNotFoundError(msg)
	}
	return fetcher.NewClientError(0, msg)
}

func price(col []*float64, i int) decimal.NullDecimal {
	if i >= len(col) || col[i] == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*col[i]))
}

func volume(col []*int64, i int) *int64 {
	if i >= len(col) {
		return nil
	}
	return col[i]
}
