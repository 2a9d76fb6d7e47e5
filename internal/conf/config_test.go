package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"paystore/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultAppID, cfg.AppID)
	assert.Equal(t, constants.StoreBackendBolt, cfg.Store.Backend)
	assert.Equal(t, constants.DefaultSubjectPrefix, cfg.Nats.SubjectPrefix)
	assert.False(t, cfg.Postgres.Enabled)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paystore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
appID: com.example.game
store:
  backend: redis
redis:
  host: redis.local
  db: 2
nats:
  subjectPrefix: game
  requestTimeout: 5s
postgres:
  enabled: true
`), 0644))

	t.Setenv("REDIS_HOST", "redis.override")
	t.Setenv("PAYSTORE_JOURNAL_RETENTION_DAYS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "com.example.game", cfg.AppID)
	assert.Equal(t, constants.StoreBackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis.override", cfg.Redis.Host)
	assert.Equal(t, "6379", cfg.Redis.Port)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "game", cfg.Nats.SubjectPrefix)
	assert.Equal(t, 5*time.Second, cfg.Nats.RequestTimeout)
	assert.True(t, cfg.Postgres.Enabled)
	assert.Equal(t, 7, cfg.Postgres.RetentionDays)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("PAYSTORE_STORE_BACKEND", "keychain")
	_, err := Load("")
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
