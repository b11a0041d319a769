package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimal = `
environment: test
redis:
  host: localhost
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5*time.Second, cfg.Refresh.Interval)
	assert.Equal(t, 5, cfg.Refresh.BatchSize)
	assert.Equal(t, time.Second, cfg.Refresh.Grace)
	assert.Equal(t, "none", cfg.History.Backend)
	assert.Equal(t, "quote.history", cfg.History.Kafka.Topic)
	assert.Equal(t, 30.0, cfg.Providers.Rate.Capacity)
	assert.Equal(t, 0.5, cfg.Providers.Rate.RefillPerSec)
	assert.Equal(t, "quotepulse", cfg.Redis.Prefix)
}

func TestLoad_MissingEnvironment(t *testing.T) {
	_, err := Load(writeConfig(t, "redis:\n  host: localhost\n"))
	assert.Error(t, err)
}

func TestLoad_MissingRedisHost(t *testing.T) {
	_, err := Load(writeConfig(t, "environment: test\n"))
	assert.Error(t, err)
}

func TestLoad_KafkaBackendRequiresBrokers(t *testing.T) {
	_, err := Load(writeConfig(t, minimal+`
history:
  backend: kafka
`))
	assert.Error(t, err)
}

func TestLoad_ClickHouseBackendRequiresHost(t *testing.T) {
	_, err := Load(writeConfig(t, minimal+`
history:
  backend: clickhouse
`))
	assert.Error(t, err)
}

func TestLoad_UnknownBackendRejected(t *testing.T) {
	_, err := Load(writeConfig(t, minimal+`
history:
  backend: s3
`))
	assert.Error(t, err)
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	t.Setenv("FINNHUB_API_KEY", "fh-key")
	t.Setenv("REDIS_HOST", "redis.internal")

	cfg, err := LoadWithEnv(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "fh-key", cfg.Providers.Finnhub.APIKey)
	assert.Equal(t, "redis.internal", cfg.Redis.Host)
}
