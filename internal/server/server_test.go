package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"niftyfetcher/internal/coordinator"
	"niftyfetcher/internal/fetcher"
	"niftyfetcher/internal/marketdata"
	"niftyfetcher/internal/metrics"
	"niftyfetcher/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubFetchers struct {
	live, historical fetcher.Func
}

func (s stubFetchers) Func(kind marketdata.Kind) fetcher.Func {
	if kind == marketdata.KindHistorical {
		return s.historical
	}
	return s.live
}

func newRouter(t *testing.T, fetchers Fetchers, gatherer prometheus.Gatherer) *gin.Engine {
	t.Helper()
	return New(Options{
		Dispatcher:  coordinator.New(4, nil, nil),
		Fetchers:    fetchers,
		Gatherer:    gatherer,
		TickerCount: 50,
	}).Router()
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResults(t *testing.T, w *httptest.ResponseRecorder) []fetcher.Result {
	t.Helper()
	var results []fetcher.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results), w.Body.String())
	return results
}

func TestFetchEndpoints_MixedResults(t *testing.T) {
	fn := testutil.NewMockFetch(map[string]fetcher.Result{
		"INFY.NS": fetcher.Success("Live market data for INFY.NS fetched and saved."),
		"TCS.NS":  fetcher.Success("Historical data for TCS.NS fetched and saved."),
	})
	router := newRouter(t, stubFetchers{live: fn, historical: fn}, nil)

	for _, path := range []string{"/market-data/live", "/market-data/historical"} {
		t.Run(path, func(t *testing.T) {
			w := post(router, path, `{"tickers": ["INFY.NS", "TCS.NS", "NOPE.NS"]}`)

			assert.Equal(t, http.StatusOK, w.Code)
			results := decodeResults(t, w)
			require.Len(t, results, 3)

			statuses := map[fetcher.Status]int{}
			for _, r := range results {
				statuses[r.Status]++
			}
			assert.Equal(t, 2, statuses[fetcher.StatusSuccess])
			assert.Equal(t, 1, statuses[fetcher.StatusError])
		})
	}
}

func TestFetchEndpoints_RoutesByKind(t *testing.T) {
	live := func(ctx context.Context, ticker string) fetcher.Result { return fetcher.Success("live " + ticker) }
	hist := func(ctx context.Context, ticker string) fetcher.Result { return fetcher.Success("historical " + ticker) }
	router := newRouter(t, stubFetchers{live: live, historical: hist}, nil)

	results := decodeResults(t, post(router, "/market-data/historical", `{"tickers":["INFY.NS"]}`))
	require.Len(t, results, 1)
	assert.Equal(t, "historical INFY.NS", results[0].Message)

	results = decodeResults(t, post(router, "/market-data/live", `{"tickers":["INFY.NS"]}`))
	require.Len(t, results, 1)
	assert.Equal(t, "live INFY.NS", results[0].Message)
}

func TestFetchEndpoints_EmptyInputs(t *testing.T) {
	router := newRouter(t, stubFetchers{live: testutil.NewMockFetch(nil)}, nil)

	for name, body := range map[string]string{
		"missing key":  `{}`,
		"null tickers": `{"tickers": null}`,
		"empty list":   `{"tickers": []}`,
		"empty body":   ``,
	} {
		t.Run(name, func(t *testing.T) {
			w := post(router, "/market-data/live", body)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `[]`, w.Body.String())
		})
	}
}

func TestFetchEndpoints_MalformedJSON(t *testing.T) {
	router := newRouter(t, stubFetchers{live: testutil.NewMockFetch(nil)}, nil)

	w := post(router, "/market-data/live", `{"tickers": [`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON body")
}

func TestFetchEndpoints_WrongTickersType(t *testing.T) {
	router := newRouter(t, stubFetchers{live: testutil.NewMockFetch(nil)}, nil)

	w := post(router, "/market-data/live", `{"tickers": "INFY.NS"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON body")
}

func TestFetchEndpoints_NoBody(t *testing.T) {
	router := newRouter(t, stubFetchers{live: testutil.NewMockFetch(nil)}, nil)

	req := httptest.NewRequest(http.MethodPost, "/market-data/historical", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestFetchEndpoints_NotCanceledByClient(t *testing.T) {
	var sawCanceled bool
	fn := func(ctx context.Context, ticker string) fetcher.Result {
		time.Sleep(20 * time.Millisecond)
		sawCanceled = ctx.Err() != nil
		return fetcher.Success(ticker)
	}
	router := newRouter(t, stubFetchers{live: fn}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/market-data/live", strings.NewReader(`{"tickers":["INFY.NS"]}`)).WithContext(ctx)
	cancel()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, sawCanceled, "fetches must not observe client cancellation")
}

func TestRequestID(t *testing.T) {
	router := newRouter(t, stubFetchers{live: testutil.NewMockFetch(nil)}, nil)

	w := post(router, "/market-data/live", `{}`)
	assert.Len(t, w.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestHealthz(t *testing.T) {
	router := newRouter(t, stubFetchers{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","tickers":50}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveResult("live", "success")

	router := newRouter(t, stubFetchers{}, reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `niftyfetcher_fetch_results_total{kind="live",status="success"} 1`)
}

func TestMetricsEndpoint_Disabled(t *testing.T) {
	router := newRouter(t, stubFetchers{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRun_Shutdown(t *testing.T) {
	srv := New(Options{
		Addr:       "127.0.0.1:0",
		Dispatcher: coordinator.New(1, nil, nil),
		Fetchers:   stubFetchers{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}
