package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(500*1024*1024), cfg.UploadMaxBytes)
	assert.Equal(t, 3, cfg.FreeFixPackLimit)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LAUNCHCHECK_PORT", "9090")
	t.Setenv("LAUNCHCHECK_DATA_DIR", "/tmp/lc-data")
	t.Setenv("LAUNCHCHECK_FREE_FIX_PACK_LIMIT", "10")
	t.Setenv("LAUNCHCHECK_REDIS_ADDR", "localhost:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/tmp/lc-data", cfg.DataDir)
	assert.Equal(t, 10, cfg.FreeFixPackLimit)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "launchcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: \"7070\"\nrequest_timeout: 10s\nredis:\n  addr: \"redis:6379\"\n  db: 2\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.FreeFixPackLimit)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(t, err)
}
