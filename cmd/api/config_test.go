package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, storageMongoDB, config.StorageBackend)
	assert.Equal(t, lockLocal, config.LockBackend)
	assert.Equal(t, 30*time.Minute, config.Stock.ReservationTTL)
	assert.Equal(t, 5*time.Minute, config.Sweeper.Interval)
	assert.Empty(t, config.CatalogURL)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "MySQL")
	t.Setenv("LOCK_BACKEND", "zookeeper")
	t.Setenv("ZOOKEEPER_SERVERS", "zk1:2181, zk2:2181")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RESERVATION_TTL", "0s")
	t.Setenv("SWEEPER_BATCH_SIZE", "50")
	t.Setenv("MYSQL_DSN", "u:p@tcp(db:3306)/stock")

	config, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, storageMySQL, config.StorageBackend)
	assert.Equal(t, []string{"zk1:2181", "zk2:2181"}, config.ZookeeperServers)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, config.Kafka.Brokers)
	assert.Zero(t, config.Stock.ReservationTTL)
	assert.Equal(t, 50, config.Sweeper.BatchSize)
	assert.Equal(t, "u:p@tcp(db:3306)/stock", config.MySQL.DSN)
}

func TestLoadConfig_RejectsMalformedValues(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("SWEEPER_INTERVAL", "often")
	t.Setenv("SWEEPER_BATCH_SIZE", "many")

	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
	assert.Contains(t, err.Error(), "SWEEPER_INTERVAL")
	assert.Contains(t, err.Error(), "SWEEPER_BATCH_SIZE")
}
