package marketdata

import (
	"context"
	"fmt"
	"log/slog"

	"niftyfetcher/internal/fetcher"
	"niftyfetcher/internal/metrics"
	"niftyfetcher/internal/tickers"
	"niftyfetcher/internal/yahoo"
)

// Kind names the two fetch operations
type Kind string

const (
	KindLive       Kind = "live"
	KindHistorical Kind = "historical"
)

// Provider is the market data source the service reads from
type Provider interface {
	History(ctx context.Context, ticker string, rng yahoo.Range, interval yahoo.Interval) (*yahoo.Series, error)
	Quote(ctx context.Context, ticker string) (*yahoo.Quote, error)
}

// Writer persists fetched data for one ticker
type Writer interface {
	WriteLive(ticker string, series *yahoo.Series, quote *yahoo.Quote) error
	WriteHistorical(ticker string, series *yahoo.Series) error
}

// Options configures a Service
type Options struct {
	Provider Provider
	Registry *tickers.Registry
	Writer   Writer
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// Service fetches live and historical data for single tickers and saves it.
// It holds no per-call state and is safe for concurrent use.
type Service struct {
	provider Provider
	registry *tickers.Registry
	writer   Writer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService creates a Service. A nil Registry accepts any ticker.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider: opts.Provider,
		registry: opts.Registry,
		writer:   opts.Writer,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// FetchLive saves today's 1-minute bars and the quote snapshot for ticker
func (s *Service) FetchLive(ctx context.Context, ticker string) fetcher.Result {
	err := s.fetchLive(ctx, ticker)
	if err != nil {
		return s.fail(KindLive, fmt.Sprintf("Failed to fetch live data for %s", ticker), ticker, err)
	}
	return s.succeed(KindLive, fmt.Sprintf("Live market data for %s fetched and saved.", ticker))
}

// FetchHistorical saves the full daily price history for ticker
func (s *Service) FetchHistorical(ctx context.Context, ticker string) fetcher.Result {
	err := s.fetchHistorical(ctx, ticker)
	if err != nil {
		return s.fail(KindHistorical, fmt.Sprintf("Failed to fetch historical data for %s", ticker), ticker, err)
	}
	return s.succeed(KindHistorical, fmt.Sprintf("Historical data for %s fetched and saved.", ticker))
}

// Func returns the fetch operation for kind
func (s *Service) Func(kind Kind) fetcher.Func {
	if kind == KindHistorical {
		return s.FetchHistorical
	}
	return s.FetchLive
}

func (s *Service) fetchLive(ctx context.Context, ticker string) error {
	if err := s.checkRegistered(ticker); err != nil {
		return err
	}

	series, err := s.provider.History(ctx, ticker, yahoo.Range1d, yahoo.Interval1m)
	if err != nil {
		return err
	}
	quote, err := s.provider.Quote(ctx, ticker)
	if err != nil {
		return err
	}
	s.warnIfEmpty(KindLive, ticker, series)

	return s.writer.WriteLive(ticker, series, quote)
}

func (s *Service) fetchHistorical(ctx context.Context, ticker string) error {
	if err := s.checkRegistered(ticker); err != nil {
		return err
	}

	series, err := s.provider.History(ctx, ticker, yahoo.RangeMax, yahoo.Interval1d)
	if err != nil {
		return err
	}
	s.warnIfEmpty(KindHistorical, ticker, series)

	return s.writer.WriteHistorical(ticker, series)
}

func (s *Service) checkRegistered(ticker string) error {
	if s.registry == nil || s.registry.Contains(ticker) {
		return nil
	}
	return fetcher.NewNotFoundError(fmt.Sprintf("ticker %s is not in the registry", ticker))
}

// empty data still produces a header-only file and a success result
func (s *Service) warnIfEmpty(kind Kind, ticker string, series *yahoo.Series) {
	if series.Len() == 0 {
		s.logger.Warn("provider returned no price bars", "kind", kind, "ticker", ticker)
	}
}

func (s *Service) succeed(kind Kind, message string) fetcher.Result {
	s.metrics.ObserveResult(string(kind), string(fetcher.StatusSuccess))
	return fetcher.Success(message)
}

func (s *Service) fail(kind Kind, prefix, ticker string, err error) fetcher.Result {
	s.logger.Error(fmt.Sprintf("%s: %v", prefix, err),
		"ticker", ticker,
		"error_type", fetcher.TypeOf(err))
	s.metrics.ObserveResult(string(kind), string(fetcher.StatusError))
	return fetcher.Failure(err)
}
