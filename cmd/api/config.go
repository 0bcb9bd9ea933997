package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/retail-platform/stock-service/internal/application"
	"github.com/retail-platform/stock-service/internal/infrastructure/mysql"
	"github.com/retail-platform/stock-service/pkg/kafka"
	"github.com/retail-platform/stock-service/pkg/mongodb"
)

const (
	storageMongoDB = "mongodb"
	storageMySQL   = "mysql"
	storageMemory  = "memory"

	lockLocal     = "local"
	lockRedis     = "redis"
	lockZookeeper = "zookeeper"
)

// Config holds the service configuration
type Config struct {
	ServerAddr       string
	StorageBackend   string
	LockBackend      string
	LockTimeout      time.Duration
	RedisAddr        string
	ZookeeperServers []string
	CatalogURL       string

	MongoDB *mongodb.Config
	MySQL   *mysql.Config
	Kafka   *kafka.Config
	Stock   application.StockServiceConfig
	Sweeper application.SweeperConfig
}

// loadConfig reads the configuration from the environment. Malformed values
// are reported together rather than silently replaced by defaults.
func loadConfig() (*Config, error) {
	env := &envReader{}

	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)

	mysqlConfig := mysql.DefaultConfig()
	mysqlConfig.DSN = getEnv("MYSQL_DSN", mysqlConfig.DSN)

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = getEnvList("KAFKA_BROKERS", kafkaConfig.Brokers)

	sweeper := application.DefaultSweeperConfig()
	sweeper.Interval = env.duration("SWEEPER_INTERVAL", sweeper.Interval)
	sweeper.InitialDelay = env.duration("SWEEPER_INITIAL_DELAY", sweeper.InitialDelay)
	sweeper.BatchSize = env.integer("SWEEPER_BATCH_SIZE", sweeper.BatchSize)

	stock := application.DefaultStockServiceConfig()
	stock.ReservationTTL = env.duration("RESERVATION_TTL", stock.ReservationTTL)

	config := &Config{
		ServerAddr:       getEnv("SERVER_ADDR", ":8080"),
		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", storageMongoDB)),
		LockBackend:      strings.ToLower(getEnv("LOCK_BACKEND", lockLocal)),
		LockTimeout:      env.duration("LOCK_TIMEOUT", 10*time.Second),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		ZookeeperServers: getEnvList("ZOOKEEPER_SERVERS", []string{"localhost:2181"}),
		CatalogURL:       getEnv("CATALOG_URL", ""),
		MongoDB:          mongoConfig,
		MySQL:            mysqlConfig,
		Kafka:            kafkaConfig,
		Stock:            stock,
		Sweeper:          sweeper,
	}

	switch config.StorageBackend {
	case storageMongoDB, storageMySQL, storageMemory:
	default:
		env.fail("STORAGE_BACKEND", config.StorageBackend)
	}
	switch config.LockBackend {
	case lockLocal, lockRedis, lockZookeeper:
	default:
		env.fail("LOCK_BACKEND", config.LockBackend)
	}

	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}
	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// envReader parses typed variables and remembers what failed
type envReader struct {
	errs []error
}

func (r *envReader) fail(key, value string) {
	r.errs = append(r.errs, fmt.Errorf("invalid value %q for %s", value, key))
}

func (r *envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		r.fail(key, value)
		return defaultValue
	}
	return d
}

func (r *envReader) integer(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, value)
		return defaultValue
	}
	return n
}
