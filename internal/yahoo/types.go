package yahoo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Range is the lookback window of a chart request
type Range string

const (
	Range1d  Range = "1d"
	Range5d  Range = "5d"
	Range1mo Range = "1mo"
	Range1y  Range = "1y"
	RangeMax Range = "max"
)

// Interval is the bar width of a chart request
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
)

// Bar is one OHLCV record. Prices the provider left empty are invalid.
type Bar struct {
	Time   time.Time
	Open   decimal.NullDecimal
	High   decimal.NullDecimal
	Low    decimal.NullDecimal
	Close  decimal.NullDecimal
	Volume *int64
}

// Series is a price history for one ticker, oldest bar first
type Series struct {
	Ticker string
	Bars   []Bar
}

// Len returns the number of bars
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Quote is the flat snapshot of current-day trading statistics.
// Fields the provider does not report encode as null.
type Quote struct {
	PreviousClose *float64 `json:"previous_close"`
	Open          *float64 `json:"open"`
	Bid           *float64 `json:"bid"`
	Ask           *float64 `json:"ask"`
	DayLow        *float64 `json:"day_low"`
	DayHigh       *float64 `json:"day_high"`
	Volume        *int64   `json:"volume"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol               string `json:"symbol"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
		GMTOffset            int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"quoteResponse"`
}

type quoteResult struct {
	Symbol                     string   `json:"symbol"`
	RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
	RegularMarketOpen          *float64 `json:"regularMarketOpen"`
	Bid                        *float64 `json:"bid"`
	Ask                        *float64 `json:"ask"`
	RegularMarketDayLow        *float64 `json:"regularMarketDayLow"`
	RegularMarketDayHigh       *float64 `json:"regularMarketDayHigh"`
	RegularMarketVolume        *int64   `json:"regularMarketVolume"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
