package api

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile_Defaults(t *testing.T) {
	cfg, err := LoadConfigFile("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 8, cfg.BulkConcurrency)
	assert.Equal(t, 30*time.Second, cfg.LockTTL())
	assert.False(t, cfg.RefundCumulativeCap)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadConfigFile_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
bulk_concurrency: 4
refund_cumulative_cap: true
kafka_brokers: ["kafka-1:9092"]
lock_ttl_seconds: 10
`), 0o600))
	t.Setenv("BULK_CONCURRENCY", "16")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("TEMPORAL_DISABLED", "true")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 16, cfg.BulkConcurrency, "environment wins over the file")
	assert.True(t, cfg.RefundCumulativeCap)
	assert.True(t, cfg.TemporalDisabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10*time.Second, cfg.LockTTL())
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	t.Setenv("PORT", "http")
	t.Setenv("BULK_CONCURRENCY", "0")
	t.Setenv("LOCK_TTL_SECONDS", "-1")

	_, err := LoadConfigFile("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "BULK_CONCURRENCY")
	assert.Contains(t, err.Error(), "LOCK_TTL_SECONDS")
}

func TestLoadConfigFile_MalformedEnv(t *testing.T) {
	t.Setenv("BULK_MAX_ITEMS", "lots")
	_, err := LoadConfigFile("")
	require.Error(t, err)
}

func TestLoadConfigFile_MissingFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
