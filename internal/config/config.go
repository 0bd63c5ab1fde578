// Package config provides runtime configuration values for the service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
)

// Config holds configuration knobs for the HTTP server, the catalog and the
// payment processor.
type Config struct {
	HTTPAddr        string
	CatalogPath     string
	LogLevel        string
	PaymentTimeout  time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	CartSessionTTL  time.Duration

	StripeSecretKey      string
	StripePublishableKey string
	// StripeBaseURL points the processor at a non-default API host.
	StripeBaseURL string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	n, err := strconv.Atoi(getenv(key, ""))
	if err != nil {
		return def
	}
	return n
}

func atofenv(key string, def float64) float64 {
	f, err := strconv.ParseFloat(getenv(key, ""), 64)
	if err != nil {
		return def
	}
	return f
}

func durenv(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getenv(key, ""))
	if err != nil {
		return def
	}
	return d
}

func durenvms(key string, defMs int) time.Duration {
	return time.Duration(atoienv(key, defMs)) * time.Millisecond
}

// Load collects configuration from the environment with defaults; args
// (usually os.Args[1:]) override individual values. Secrets are read from
// the environment only.
func Load(args []string) (Config, error) {
	cfg := Config{
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripePublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		StripeBaseURL:        os.Getenv("STRIPE_API_BASE"),
	}

	fs := pflag.NewFlagSet("storefront", pflag.ContinueOnError)
	fs.StringVar(&cfg.HTTPAddr, "http-addr", getenv("HTTP_ADDR", ":9091"), "listen address")
	fs.StringVar(&cfg.CatalogPath, "catalog", getenv("CATALOG_PATH", ""), "catalog YAML file (embedded default when empty)")
	fs.StringVar(&cfg.LogLevel, "log-level", getenv("LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.DurationVar(&cfg.PaymentTimeout, "payment-timeout", durenvms("PAYMENT_TIMEOUT_MS", 10000), "payment processor call timeout")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", durenv("SHUTDOWN_TIMEOUT", 5*time.Second), "graceful shutdown budget")
	fs.Float64Var(&cfg.RateLimitRPS, "rate-limit-rps", atofenv("RATE_LIMIT_RPS", 5), "session-creating requests per second per client, 0 disables")
	fs.IntVar(&cfg.RateLimitBurst, "rate-limit-burst", atoienv("RATE_LIMIT_BURST", 10), "session-creating burst per client")
	fs.DurationVar(&cfg.CartSessionTTL, "cart-ttl", durenv("CART_SESSION_TTL", 30*time.Minute), "idle cart session lifetime, 0 keeps sessions forever")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem at once so a misconfigured deployment
// fails before it starts listening.
func (c Config) Validate() error {
	var err error
	if c.StripeSecretKey == "" {
		err = multierr.Append(err, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.StripePublishableKey == "" {
		err = multierr.Append(err, errors.New("STRIPE_PUBLISHABLE_KEY is required"))
	}
	if c.HTTPAddr == "" {
		err = multierr.Append(err, errors.New("http address is required"))
	}
	if c.PaymentTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("payment timeout must be positive, got %s", c.PaymentTimeout))
	}
	if c.ShutdownTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout))
	}
	if c.RateLimitRPS < 0 {
		err = multierr.Append(err, fmt.Errorf("rate limit must not be negative, got %v", c.RateLimitRPS))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		err = multierr.Append(err, fmt.Errorf("rate limit burst must be at least 1, got %d", c.RateLimitBurst))
	}
	if c.CartSessionTTL < 0 {
		err = multierr.Append(err, fmt.Errorf("cart session ttl must not be negative, got %s", c.CartSessionTTL))
	}
	return err
}
