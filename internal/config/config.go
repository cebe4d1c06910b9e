package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the market data service.
type Config struct {
	// Ticker list (CSV with a Symbol column) and the exchange suffix appended to each symbol
	TickerListPath string `mapstructure:"ticker_list_path"`
	ExchangeSuffix string `mapstructure:"exchange_suffix"`

	// Provider endpoint (configurable for testing)
	ProviderBaseURL string        `mapstructure:"provider_base_url"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`

	ListenAddr string `mapstructure:"listen_addr"`

	// Output locations
	LiveDataDir       string `mapstructure:"live_data_dir"`
	HistoricalDataDir string `mapstructure:"historical_data_dir"`
	ErrorLogPath      string `mapstructure:"error_log_path"`
	LogLevel          string `mapstructure:"log_level"`

	// Response cache
	CacheDir string        `mapstructure:"cache_dir"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// Outbound quota and batch parallelism
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
	WorkerPoolSize    int           `mapstructure:"worker_pool_size"`
}

var envBindings = map[string]string{
	"ticker_list_path":    "TICKER_LIST_PATH",
	"exchange_suffix":     "EXCHANGE_SUFFIX",
	"provider_base_url":   "PROVIDER_BASE_URL",
	"provider_timeout":    "PROVIDER_TIMEOUT",
	"listen_addr":         "LISTEN_ADDR",
	"live_data_dir":       "LIVE_DATA_DIR",
	"historical_data_dir": "HISTORICAL_DATA_DIR",
	"error_log_path":      "ERROR_LOG_PATH",
	"log_level":           "LOG_LEVEL",
	"cache_dir":           "CACHE_DIR",
	"cache_ttl":           "CACHE_TTL",
	"rate_limit_requests": "RATE_LIMIT_REQUESTS",
	"rate_limit_window":   "RATE_LIMIT_WINDOW",
	"worker_pool_size":    "WORKER_POOL_SIZE",
}

// Load reads configuration from an optional .env file, an optional config
// file and environment variables. Environment variables take precedence over
// config file values.
//
// Expected environment variables:
//   - TICKER_LIST_PATH (required)
//   - EXCHANGE_SUFFIX (optional, defaults to .NS)
//   - PROVIDER_BASE_URL (optional, defaults to production)
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW (optional, default 2 per 5s)
//   - WORKER_POOL_SIZE (optional, defaults to 10)
func Load() (*Config, error) {
	// .env is a convenience for local runs; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()

	v.SetDefault("exchange_suffix", ".NS")
	v.SetDefault("provider_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("provider_timeout", 30*time.Second)
	v.SetDefault("listen_addr", "0.0.0.0:8000")
	v.SetDefault("live_data_dir", "nifty50_live_data")
	v.SetDefault("historical_data_dir", "nifty50_historical_data")
	v.SetDefault("error_log_path", "nifty50_data_fetch.log")
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_dir", "yfinance.cache")
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("rate_limit_requests", 2)
	v.SetDefault("rate_limit_window", 5*time.Second)
	v.SetDefault("worker_pool_size", 10)

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.niftyfetcher")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate reports every invalid or missing setting at once
func (c *Config) Validate() error {
	var problems []string
	if c.TickerListPath == "" {
		problems = append(problems, "TICKER_LIST_PATH is required")
	}
	if c.RateLimitRequests <= 0 {
		problems = append(problems, "RATE_LIMIT_REQUESTS must be positive")
	}
	if c.RateLimitWindow <= 0 {
		problems = append(problems, "RATE_LIMIT_WINDOW must be positive")
	}
	if c.WorkerPoolSize <= 0 {
		problems = append(problems, "WORKER_POOL_SIZE must be positive")
	}
	if c.ProviderBaseURL == "" {
		problems = append(problems, "PROVIDER_BASE_URL must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}
