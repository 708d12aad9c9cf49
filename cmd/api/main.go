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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bitetrack-backend/api/routes"
	"github.com/angelmondragon/bitetrack-backend/internal/customers"
	"github.com/angelmondragon/bitetrack-backend/internal/drops"
	"github.com/angelmondragon/bitetrack-backend/internal/inventory"
	"github.com/angelmondragon/bitetrack-backend/internal/sales"
	"github.com/angelmondragon/bitetrack-backend/pkg/config"
	"github.com/angelmondragon/bitetrack-backend/pkg/db"
	"github.com/angelmondragon/bitetrack-backend/pkg/logger"
	"github.com/angelmondragon/bitetrack-backend/pkg/metrics"
	"github.com/angelmondragon/bitetrack-backend/pkg/migrate"
	"github.com/angelmondragon/bitetrack-backend/pkg/outbox"
	"github.com/angelmondragon/bitetrack-backend/pkg/redis"
	"github.com/angelmondragon/bitetrack-backend/pkg/tracing"
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

	shutdownTracing, err := tracing.Setup(context.Background(), cfg.Tracing, "bitetrack-api")
	if err != nil {
		logg.Error(context.Background(), "failed to set up tracing", err)
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	inventoryMetrics := metrics.NewInventoryMetrics(registry)
	dbClient.SetObserver(inventoryMetrics)

	store, err := inventory.NewStore(inventory.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to build inventory store", err)
		os.Exit(1)
	}
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	salesService, err := sales.NewService(sales.ServiceParams{
		Repository: sales.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Inventory:  store,
		Customers:  customers.NewRepository(dbClient.DB()),
		Outbox:     outboxService,
		Logger:     logg,
		Metrics:    inventoryMetrics,
		Tracer:     tracing.Tracer(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build sales service", err)
		os.Exit(1)
	}

	dropService, err := drops.NewService(drops.ServiceParams{
		Repository: drops.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Inventory:  store,
		Outbox:     outboxService,
		Logger:     logg,
		Metrics:    inventoryMetrics,
		Tracer:     tracing.Tracer(),
		UndoWindow: cfg.Inventory.UndoWindow,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build drops service", err)
		os.Exit(1)
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

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			redisClient,
			salesService,
			dropService,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
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
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := multierr.Combine(server.Shutdown(shutdownCtx), shutdownTracing(shutdownCtx)); err != nil {
		logg.Error(ctx, "api shutdown incomplete", err)
		return
	}
	logg.Info(ctx, "api server shut down gracefully")
}
