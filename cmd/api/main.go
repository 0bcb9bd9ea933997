package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/retail-platform/stock-service/internal/application"
	"github.com/retail-platform/stock-service/pkg/kafka"
	"github.com/retail-platform/stock-service/pkg/logging"
	"github.com/retail-platform/stock-service/pkg/metrics"
	"github.com/retail-platform/stock-service/pkg/middleware"
	"github.com/retail-platform/stock-service/pkg/outbox"
	"github.com/retail-platform/stock-service/pkg/tracing"
)

const serviceName = "stock-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting stock-service API")

	config, err := loadConfig()
	if err != nil {
		logger.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, logger); err != nil {
		logger.WithError(err).Error("stock-service stopped with error")
		os.Exit(1)
	}
	logger.Info("Server exited")
}

func run(ctx context.Context, config *Config, logger *logging.Logger) error {
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		// Tracing is optional
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	store, err := openStorage(ctx, config, logger, m)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.close(closeCtx); err != nil {
			logger.WithError(err).Error("Failed to close storage")
		}
	}()
	logger.Info("Storage ready", "backend", config.StorageBackend)

	locker, closeLocker, err := newLocker(ctx, config, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	products, names := newCatalog(config, logger, m)

	service := application.NewStockService(store.repos, products, locker, config.Stock, logger, m)
	if names != nil {
		service.WithProductNamer(names)
	}
	sweeper := application.NewExpirationSweeper(service, store.repos.Reservations, config.Sweeper, logger, m)

	kafkaProducer := kafka.NewProducer(config.Kafka)
	defer kafkaProducer.Close()
	publisher := outbox.NewPublisher(
		store.outbox,
		kafka.NewInstrumentedProducer(kafkaProducer, m, logger),
		logger,
		m,
		outbox.DefaultPublisherConfig(),
	)
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	router := newRouter(service, sweeper, m, logger, func() error {
		readyCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return store.ready(readyCtx)
	})

	server := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if err := publisher.Start(gctx); err != nil {
		return err
	}
	if err := sweeper.Start(gctx); err != nil {
		_ = publisher.Stop()
		return err
	}

	g.Go(func() error {
		logger.Info("Server starting", "addr", config.ServerAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)

		sweeper.Stop()
		if stopErr := publisher.Stop(); stopErr != nil {
			logger.WithError(stopErr).Warn("Outbox publisher stop")
		}
		return err
	})

	return g.Wait()
}

func newRouter(
	service *application.StockService,
	sweeper *application.ExpirationSweeper,
	m *metrics.Metrics,
	logger *logging.Logger,
	ready func() error,
) *gin.Engine {
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.TracingMiddleware(serviceName))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, ready))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	registerRoutes(router, service, sweeper, logger)
	return router
}
