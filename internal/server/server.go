package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"niftyfetcher/internal/fetcher"
	"niftyfetcher/internal/marketdata"
)

const shutdownTimeout = 10 * time.Second

// Dispatcher runs a fetch function over a batch of tickers
type Dispatcher interface {
	Run(ctx context.Context, kind string, tickers []string, fn fetcher.Func) []fetcher.Result
}

// Fetchers resolves the fetch function for each endpoint
type Fetchers interface {
	Func(kind marketdata.Kind) fetcher.Func
}

// Options configures a Server
type Options struct {
	Addr       string
	Logger     *zap.Logger
	Dispatcher Dispatcher
	Fetchers   Fetchers
	// Gatherer backs GET /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer
	// TickerCount is reported by GET /healthz
	TickerCount int
}

// Server represents the HTTP server
type Server struct {
	opts   Options
	logger *zap.Logger
}

// New creates a new HTTP server
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{opts: opts, logger: logger}
}

// Router creates the HTTP router
func (s *Server) Router() *gin.Engine {
	router := gin.New()

	router.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(cors.Default())
	router.Use(requestID())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "tickers": s.opts.TickerCount})
	})
	if s.opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}

	md := router.Group("/market-data")
	md.POST("/live", s.handleFetch(marketdata.KindLive))
	md.POST("/historical", s.handleFetch(marketdata.KindHistorical))

	return router
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
