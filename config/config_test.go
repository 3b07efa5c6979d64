package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5555", cfg.APIBaseURL)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_base_url: http://bakery.test\nstorage_backend: redis\nredis_key_prefix: \"sf:\"\n"), 0o600))

	t.Setenv("STOREFRONT_STORAGE", "memory")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://bakery.test", cfg.APIBaseURL)
	assert.Equal(t, "memory", cfg.StorageBackend, "environment wins over the file")
	assert.Equal(t, "sf:", cfg.RedisKeyPrefix)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetEnvFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("  s3cret\n"), 0o600))
	t.Setenv("JWT_SECRET_FILE", path)
	t.Setenv("JWT_SECRET", "ignored")
	assert.Equal(t, "s3cret", getEnvFromFile("JWT_SECRET_FILE", "JWT_SECRET", "dev"))
}

func TestPortAndDuration(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("TOKEN_TTL", "3600")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.ServerPort)
	assert.Equal(t, time.Hour, cfg.TokenTTL)

	t.Setenv("TOKEN_TTL", "90m")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
}
