package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"niftyfetcher/internal/cache"
	"niftyfetcher/internal/config"
	"niftyfetcher/internal/coordinator"
	"niftyfetcher/internal/fetcher"
	"niftyfetcher/internal/filestore"
	"niftyfetcher/internal/logging"
	"niftyfetcher/internal/marketclient"
	"niftyfetcher/internal/marketdata"
	"niftyfetcher/internal/metrics"
	"niftyfetcher/internal/ratelimit"
	"niftyfetcher/internal/server"
	"niftyfetcher/internal/tickers"
	"niftyfetcher/internal/yahoo"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logs, err := logging.New(logging.Options{Level: cfg.LogLevel, ErrorLogPath: cfg.ErrorLogPath})
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	if err := run(cfg, logs); err != nil {
		logs.Zap.Sugar().Errorf("Market data service failed: %v", err)
		logs.Close()
		os.Exit(1)
	}
	logs.Close()
}

func run(cfg *config.Config, logs *logging.Loggers) error {
	// Create context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := newApp(cfg, logs, reg)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.server.Run(ctx)
}

// app is the fully wired service
type app struct {
	server *server.Server
	store  *cache.Store
}

func newApp(cfg *config.Config, logs *logging.Loggers, reg *prometheus.Registry) (*app, error) {
	registry, err := tickers.Load(cfg.TickerListPath, cfg.ExchangeSuffix)
	if err != nil {
		return nil, err
	}

	files := filestore.New(cfg.LiveDataDir, cfg.HistoricalDataDir)
	if err := files.Init(); err != nil {
		return nil, err
	}

	limiter, err := ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(cfg.CacheDir, cfg.CacheTTL)
	if err != nil {
		return nil, err
	}

	m := metrics.New(reg)
	client := marketclient.New(marketclient.Options{
		HTTP:    fetcher.NewHTTPClient(cfg.ProviderBaseURL, cfg.ProviderTimeout),
		Limiter: limiter,
		Store:   store,
		Logger:  logs.Slog,
		Metrics: m,
	})

	svc := marketdata.NewService(marketdata.Options{
		Provider: yahoo.NewClient(client),
		Registry: registry,
		Writer:   files,
		Logger:   logs.Slog,
		Metrics:  m,
	})

	logs.Slog.Info("market data service configured",
		"tickers", registry.Len(),
		"rate_limit", limiter.String(),
		"workers", cfg.WorkerPoolSize,
		"cache_ttl", cfg.CacheTTL)

	return &app{
		server: server.New(server.Options{
			Addr:        cfg.ListenAddr,
			Logger:      logs.Zap,
			Dispatcher:  coordinator.New(cfg.WorkerPoolSize, logs.Slog, m),
			Fetchers:    svc,
			Gatherer:    reg,
			TickerCount: registry.Len(),
		}),
		store: store,
	}, nil
}

// Close releases the response cache
func (a *app) Close() error {
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("closing response cache: %w", err)
	}
	return nil
}
