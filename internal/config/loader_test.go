package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 8090
  mode: test
database:
  host: pg.internal
  port: 5432
  user: minrisk
  password: secret
  db_name: minrisk
redis:
  addr: redis.internal:6379
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  group_id: engine
engine:
  matrix_size: 5
  confidence_threshold: 0
  residual_formula: dime-strongest-v1
  cache_ttl: 90s
log:
  level: debug
  format: console
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "pg.internal", cfg.Database.Host)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 0, cfg.Engine.ConfidenceThreshold)
	assert.Equal(t, "dime-strongest-v1", cfg.Engine.ResidualFormula)
	assert.Equal(t, 90*time.Second, cfg.Engine.CacheTTL)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, DefaultCommitLockTTL, cfg.Engine.CommitLockTTL)
}

func TestLoad_ThresholdDefaultsWhenAbsent(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfidenceThreshold, cfg.Engine.ConfidenceThreshold)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MINRISK_DATABASE_HOST", "env-host")
	t.Setenv("MINRISK_ENGINE_MATRIX_SIZE", "4")

	cfg, err := Load(writeConfig(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 4, cfg.Engine.MatrixSize)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "engine:\n  matrix_size: 42\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.matrix_size")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MINRISK_REDIS_ADDR", "cache:6380")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "absent.yaml")) })
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, validConfigYAML)
	changed := make(chan *Config, 1)
	Watch(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}, nil)

	time.Sleep(100 * time.Millisecond)
	updated := validConfigYAML + "\nworker:\n  concurrency: 9\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	select {
	case c := <-changed:
		assert.Equal(t, 9, c.Worker.Concurrency)
	case <-time.After(5 * time.Second):
		t.Skip("filesystem notifications unavailable in this environment")
	}
}

//Personal.AI order the ending
