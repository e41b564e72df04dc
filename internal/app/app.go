// Package app wires configuration, stores, services, and the HTTP server
// together and owns the process lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/config"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/event"
	httpapi "github.com/Devzair-Officiel/ecommerce-api-sub000/internal/handler/http"
	postgresrepo "github.com/Devzair-Officiel/ecommerce-api-sub000/internal/repository/postgres"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/repository/postgres/migrations"
	redisrepo "github.com/Devzair-Officiel/ecommerce-api-sub000/internal/repository/redis"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/service"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/database"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/health"
	pkgkafka "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/kafka"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/middleware"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/tracing"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// App is the assembled service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool     *pgxpool.Pool
	redis    *redis.Client
	producer *pkgkafka.Producer

	server          *http.Server
	shutdownTracing func(context.Context) error
}

// New builds the application: connects the stores, runs migrations, and
// assembles the HTTP server.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	shutdownTracing, err := tracing.InitTracer(ctx, cfg.TracerConfig(Version))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.shutdownTracing = shutdownTracing

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresPoolConfig(), logger)
	if err != nil {
		return nil, err
	}
	a.pool = pool

	if err := database.RunMigrations(ctx, pool, migrations.Files, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	database.RegisterPoolMetrics(pool)

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisClientConfig())
	if err != nil {
		return nil, err
	}
	a.redis = redisClient

	var events service.EventPublisher = event.Noop{}
	if cfg.Kafka.Enabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.Kafka.Brokers), logger)
		events = event.NewProducer(a.producer, logger)
	}

	cartRepo := redisrepo.NewCartRepository(redisClient, cfg.Commerce.CartTTL)
	variantRepo := postgresrepo.NewVariantRepository(pool)
	stockRepo := postgresrepo.NewStockRepository(pool)
	couponRepo := postgresrepo.NewCouponRepository(pool)
	orderRepo := postgresrepo.NewOrderRepository(pool)

	cartSvc := service.NewCartService(cartRepo, variantRepo, events, logger,
		cfg.Commerce.CartTTL, cfg.Commerce.PriceDriftWarnPercent)
	couponSvc := service.NewCouponService(couponRepo, cartRepo, events, logger, cfg.Commerce.CartTTL)
	checkoutSvc := service.NewCheckoutService(cartRepo, variantRepo, couponRepo, orderRepo,
		events, logger, cfg.Commerce.TaxRateBps, cfg.Commerce.ShippingAmount)
	orderSvc := service.NewOrderService(orderRepo, events, logger)
	stockSvc := service.NewStockService(stockRepo, variantRepo, logger)

	api := httpapi.New(cartSvc, couponSvc, checkoutSvc, orderSvc, stockSvc, logger)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      a.router(api),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	return a, nil
}

func (a *App) router(api *httpapi.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestLogging(a.logger))
	r.Use(middleware.RequestLogger(a.logger))
	r.Use(middleware.PrometheusMetrics())
	if a.cfg.Tracing.Enabled {
		r.Use(middleware.Tracing(a.cfg.ServiceName))
	}

	r.Mount("/api/v1", api.Routes())

	h := health.NewHandler()
	h.Register("postgres", func(ctx context.Context) error { return a.pool.Ping(ctx) })
	h.Register("redis", func(ctx context.Context) error { return a.redis.Ping(ctx).Err() })
	if a.producer != nil {
		h.Register("kafka", a.producer.Ping)
	}
	r.Get("/healthz", h.LivenessHandler())
	r.Get("/readyz", h.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	a.close(shutdownCtx)
	return nil
}

func (a *App) close(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("close kafka producer", slog.String("error", err.Error()))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("close redis client", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.shutdownTracing != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(flushCtx); err != nil {
			a.logger.Error("shutdown tracing", slog.String("error", err.Error()))
		}
	}
}
