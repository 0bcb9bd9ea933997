package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/retail-platform/stock-service/internal/application"
	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/internal/infrastructure/catalog"
	"github.com/retail-platform/stock-service/internal/infrastructure/locking"
	"github.com/retail-platform/stock-service/internal/infrastructure/memory"
	mongoRepo "github.com/retail-platform/stock-service/internal/infrastructure/mongodb"
	"github.com/retail-platform/stock-service/internal/infrastructure/mysql"
	"github.com/retail-platform/stock-service/internal/infrastructure/staging"
	"github.com/retail-platform/stock-service/pkg/cloudevents"
	"github.com/retail-platform/stock-service/pkg/logging"
	"github.com/retail-platform/stock-service/pkg/metrics"
	"github.com/retail-platform/stock-service/pkg/mongodb"
	"github.com/retail-platform/stock-service/pkg/outbox"
)

// storage is one opened persistence backend
type storage struct {
	repos  application.Repositories
	outbox outbox.Repository
	ready  func(ctx context.Context) error
	close  func(ctx context.Context) error
}

func withStager(repos application.Repositories, outboxRepo outbox.Repository) application.Repositories {
	repos.Events = staging.NewOutboxStager(outboxRepo, cloudevents.NewEventFactory(cloudevents.SourceStock))
	return repos
}

func openStorage(ctx context.Context, config *Config, logger *logging.Logger, m *metrics.Metrics) (*storage, error) {
	switch config.StorageBackend {
	case storageMemory:
		return openMemory(), nil
	case storageMySQL:
		return openMySQL(ctx, config.MySQL, logger, m)
	default:
		return openMongoDB(ctx, config.MongoDB, logger, m)
	}
}

func openMemory() *storage {
	store := memory.NewStore()
	outboxRepo := memory.NewOutboxRepository(store)
	return &storage{
		repos: withStager(application.Repositories{
			Stocks:       memory.NewStockRepository(store),
			Movements:    memory.NewMovementRepository(store),
			Reservations: memory.NewReservationRepository(store),
			Alerts:       memory.NewAlertRepository(store),
			Tx:           memory.NewTransactionManager(store),
		}, outboxRepo),
		outbox: outboxRepo,
		ready:  func(context.Context) error { return nil },
		close:  func(context.Context) error { return nil },
	}
}

func openMongoDB(ctx context.Context, config *mongodb.Config, logger *logging.Logger, m *metrics.Metrics) (*storage, error) {
	client, err := mongodb.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	logger.Info("Connected to MongoDB", "database", config.Database)

	backend := mongoRepo.NewBackend(client, m)
	if err := backend.EnsureIndexes(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return &storage{
		repos: withStager(application.Repositories{
			Stocks:       backend.Stocks,
			Movements:    backend.Movements,
			Reservations: backend.Reservations,
			Alerts:       backend.Alerts,
			Tx:           backend.Tx,
		}, backend.Outbox),
		outbox: backend.Outbox,
		ready:  client.HealthCheck,
		close:  client.Close,
	}, nil
}

func openMySQL(ctx context.Context, config *mysql.Config, logger *logging.Logger, m *metrics.Metrics) (*storage, error) {
	db, err := mysql.Open(ctx, config, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := mysql.Migrate(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	logger.Info("Connected to MySQL")

	backend := mysql.NewBackend(db, m)
	return &storage{
		repos: withStager(application.Repositories{
			Stocks:       backend.Stocks,
			Movements:    backend.Movements,
			Reservations: backend.Reservations,
			Alerts:       backend.Alerts,
			Tx:           backend.Tx,
		}, backend.Outbox),
		outbox: backend.Outbox,
		ready:  sqlDB.PingContext,
		close:  func(context.Context) error { return sqlDB.Close() },
	}, nil
}

// newLocker returns the product locker and a function releasing its connection
func newLocker(ctx context.Context, config *Config, logger *logging.Logger) (application.ProductLocker, func(), error) {
	switch config.LockBackend {
	case lockRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{config.RedisAddr}})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("Using redis product locks", "addr", config.RedisAddr)
		return locking.NewRedisLocker(client, locking.DefaultRedisLockerConfig(), logger), func() { _ = client.Close() }, nil

	case lockZookeeper:
		conn, err := locking.ConnectZookeeper(config.ZookeeperServers, 10*time.Second)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using zookeeper product locks", "servers", config.ZookeeperServers)
		return locking.NewZookeeperLocker(conn, config.LockTimeout, logger), conn.Close, nil

	default:
		return locking.NewKeyedMutex(config.LockTimeout), func() {}, nil
	}
}

// newCatalog returns the product validator and, when a catalog is
// configured, the namer used to enrich responses.
func newCatalog(config *Config, logger *logging.Logger, m *metrics.Metrics) (domain.ProductValidator, application.ProductNamer) {
	if config.CatalogURL == "" {
		logger.Warn("CATALOG_URL not set, products are not validated")
		return catalog.NoopValidator{}, nil
	}
	client := catalog.NewClient(catalog.DefaultConfig(config.CatalogURL), logger, m)
	return client, client
}
