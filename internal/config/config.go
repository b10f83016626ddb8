// Package config loads dashboard settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/damon-houk/fx-rate-dashboard/internal/domain/entity"
)

const (
	// CacheBackendCSV stores the rate table in a flat CSV file
	CacheBackendCSV = "csv"
	// CacheBackendBadger stores the rate table in an embedded BadgerDB directory
	CacheBackendBadger = "badger"

	// ResampleDaily keeps one row per API date
	ResampleDaily = "daily"
	// ResampleWeekly averages rows into Monday-started weeks
	ResampleWeekly = "weekly"
)

type Config struct {
	// Rate API
	APIBaseURL         string
	BaseCurrency       string
	Currencies         []string
	StartDate          time.Time
	EndDate            time.Time
	HTTPTimeoutSeconds int

	// Cache
	CacheBackend string
	CachePath    string
	BadgerDir    string

	// Transform
	Resample         string
	VolatilityWindow int

	// Server
	HTTPAddr          string
	LogLevel          string
	APIRateLimitRPS   float64
	APIRateLimitBurst int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	start, err := envDate("FX_START_DATE", "2023-01-01")
	if err != nil {
		return nil, err
	}
	end, err := envDate("FX_END_DATE", "2023-12-31")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIBaseURL:         envStr("FX_API_BASE_URL", "https://api.frankfurter.app"),
		BaseCurrency:       strings.ToUpper(envStr("FX_BASE_CURRENCY", "USD")),
		Currencies:         envList("FX_CURRENCIES", []string{"EUR", "GBP", "JPY", "CAD", "AUD", "CHF", "CNY", "INR"}),
		StartDate:          start,
		EndDate:            end,
		HTTPTimeoutSeconds: envInt("HTTP_TIMEOUT_SECONDS", 30),

		CacheBackend: strings.ToLower(envStr("FX_CACHE_BACKEND", CacheBackendCSV)),
		CachePath:    envStr("FX_CACHE_PATH", "exchange_rates.csv"),
		BadgerDir:    envStr("FX_BADGER_DIR", "data"),

		Resample:         strings.ToLower(envStr("FX_RESAMPLE", ResampleDaily)),
		VolatilityWindow: envInt("FX_VOLATILITY_WINDOW", 30),

		HTTPAddr:          envStr("HTTP_ADDR", ":8050"),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		APIRateLimitRPS:   envFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst: envInt("API_RATE_LIMIT_BURST", 40),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if err := c.Query().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.VolatilityWindow < 2 {
		errs = append(errs, "FX_VOLATILITY_WINDOW must be at least 2")
	}
	if c.CacheBackend != CacheBackendCSV && c.CacheBackend != CacheBackendBadger {
		errs = append(errs, fmt.Sprintf("FX_CACHE_BACKEND must be %q or %q", CacheBackendCSV, CacheBackendBadger))
	}
	if c.Resample != ResampleDaily && c.Resample != ResampleWeekly {
		errs = append(errs, fmt.Sprintf("FX_RESAMPLE must be %q or %q", ResampleDaily, ResampleWeekly))
	}
	if c.APIRateLimitRPS <= 0 || c.APIRateLimitBurst <= 0 {
		errs = append(errs, "API_RATE_LIMIT_RPS and API_RATE_LIMIT_BURST must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Query returns the fetch request described by the configuration
func (c *Config) Query() entity.RateQuery {
	return entity.RateQuery{
		Start:      c.StartDate,
		End:        c.EndDate,
		Base:       c.BaseCurrency,
		Currencies: c.Currencies,
	}
}

// HTTPTimeout returns the outbound request timeout
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envDate(key, fallback string) (time.Time, error) {
	v := envStr(key, fallback)
	d, err := time.Parse(entity.DateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD, got %q: %w", key, v, err)
	}
	return d, nil
}
