package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bookverse-backend/api/controllers"
	"github.com/angelmondragon/bookverse-backend/api/routes"
	"github.com/angelmondragon/bookverse-backend/internal/cart"
	"github.com/angelmondragon/bookverse-backend/internal/catalog"
	"github.com/angelmondragon/bookverse-backend/internal/orders"
	"github.com/angelmondragon/bookverse-backend/internal/payments"
	"github.com/angelmondragon/bookverse-backend/pkg/config"
	"github.com/angelmondragon/bookverse-backend/pkg/db"
	"github.com/angelmondragon/bookverse-backend/pkg/logger"
	"github.com/angelmondragon/bookverse-backend/pkg/metrics"
	"github.com/angelmondragon/bookverse-backend/pkg/migrate"
	"github.com/angelmondragon/bookverse-backend/pkg/outbox"
	"github.com/angelmondragon/bookverse-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		return err
	}

	var (
		cartStore   cart.Store
		redisPinger controllers.Pinger
		idempotency redis.IdempotencyStore
	)
	if cfg.Redis.Enabled() {
		redisClient, redisErr := redis.New(context.Background(), cfg.Redis, logg)
		if redisErr != nil {
			return redisErr
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		cartStore = cart.NewRedisStore(redisClient, cfg.Cart.TTL)
		redisPinger = redisClient
		idempotency = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, carts are kept in memory and idempotency is disabled")
		cartStore = cart.NewMemoryStore()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	catalogMetrics := metrics.NewCatalogMetrics(reg)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	productCache := catalog.NewCache(catalogRepo, catalog.CacheOptions{
		FetchTimeout:  cfg.Catalog.FetchTimeout,
		MaxConcurrent: cfg.Catalog.MaxConcurrentLookups,
		Metrics:       catalogMetrics,
		Logger:        logg,
	})
	suggester := catalog.NewSuggester(catalogRepo, cfg.Catalog.SuggestionLimit, catalogMetrics)

	cartService := cart.NewService(cart.EngineDeps{
		Store:    cartStore,
		Resolver: productCache,
		Policy:   cart.NewPricingPolicy(cfg.Pricing),
		Logger:   logg,
	})

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:      ordersRepo,
		Tx:        dbClient,
		Outbox:    outboxService,
		Metrics:   metrics.NewOrderMetrics(reg),
		Logger:    logg,
		RefundSLA: cfg.Gateway.RefundSLA,
	})
	if err != nil {
		return err
	}

	if cfg.Gateway.HashSecret == "" {
		logg.Warn(context.Background(), "gateway hash secret not configured, every gateway return will be rejected")
	}
	reconciler, err := payments.NewReconciler(payments.ReconcilerParams{
		Orders:      ordersRepo,
		Receipts:    payments.NewReceiptRepository(dbClient.DB()),
		Tx:          dbClient,
		Outbox:      outboxService,
		Verifier:    payments.NewVerifier(cfg.Gateway.HashSecret),
		Metrics:     metrics.NewReconcileMetrics(reg),
		Logger:      logg,
		SuccessCode: cfg.Gateway.SuccessCode,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	handler := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisPinger,
		idempotency,
		reg,
		suggester,
		cartService,
		productCache,
		ordersService,
		reconciler,
	)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
