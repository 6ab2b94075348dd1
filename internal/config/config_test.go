package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fernpost.yaml")
	err := os.WriteFile(path, []byte(`
server:
  port: 9000
database:
  type: memory
index_cache_ttl: 45s
`), 0o644)
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("DB_TYPE", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// File values
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, 45*time.Second, cfg.IndexCacheTTL)
	// Env override on top of file
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	// Defaults survive
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadConfigRequiresSecretAndURI(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_TYPE", "memory")
	t.Setenv("DATABASE_URL", "")

	_, err := LoadConfig("")
	assert.Error(t, err, "missing JWT secret must be rejected")

	t.Setenv("JWT_SECRET", "s")
	t.Setenv("DB_TYPE", "postgres")
	_, err = LoadConfig("")
	assert.Error(t, err, "postgres without DATABASE_URL must be rejected")
}
