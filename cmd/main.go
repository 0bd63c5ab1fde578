package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/internal/config"
	httpapi "storefront/internal/http"
	"storefront/internal/logging"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/service"

	_ "storefront/docs"
)

// @title Storefront API
// @version 1.0
// @description Catalog, cart sessions and server-priced payment sessions.
// @host localhost:9091
// @BasePath /
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	catalog, err := repository.LoadCatalogFile(cfg.CatalogPath)
	if err != nil {
		return err
	}
	carts := repository.NewMemoryCarts(cfg.CartSessionTTL)

	stripeProc, err := payment.NewStripeProcessor(payment.StripeConfig{
		SecretKey: cfg.StripeSecretKey,
		Timeout:   cfg.PaymentTimeout,
		BaseURL:   cfg.StripeBaseURL,
	}, log)
	if err != nil {
		return err
	}
	processor := payment.NewBreaker(stripeProc, payment.DefaultBreakerConfig(), log)

	productsSvc := service.NewProductService(catalog)
	pricingSvc := service.NewPricingService(catalog, processor, log)
	cartsSvc := service.NewCartService(carts, catalog, pricingSvc, log)

	gin.SetMode(gin.ReleaseMode)
	srv := httpapi.NewServer(productsSvc, pricingSvc, cartsSvc, httpapi.Options{
		PublishableKey: cfg.StripePublishableKey,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		PaymentState:   processor.State,
		Logger:         log,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if cfg.CartSessionTTL > 0 {
		g.Go(func() error {
			t := time.NewTicker(cfg.CartSessionTTL / 2)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case now := <-t.C:
					if n := carts.Sweep(now); n > 0 {
						log.Debug("expired cart sessions", zap.Int("count", n), zap.Int("live", carts.Len()))
					}
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", zap.Error(err))
			return err
		}
		log.Info("HTTP server stopped")
		return nil
	})

	return g.Wait()
}
