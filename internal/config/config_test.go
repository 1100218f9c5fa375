package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadServer()
	require.ErrorIs(t, err, ErrMissingJWTSecret)

	t.Setenv("JWT_SECRET", "short")
	_, err = LoadServer()
	require.ErrorIs(t, err, ErrWeakJWTSecret)
}

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("HTTP_PORT", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_DSN", "")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.True(t, cfg.UsesDefaultDSN())
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", 40))
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("DATABASE_DSN", "file:server.db")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.False(t, cfg.UsesDefaultDSN())
}

func TestLoadPOSDefaults(t *testing.T) {
	for _, k := range []string{"POS_HTTP_PORT", "SERVER_URL", "SYNC_INTERVAL_MS", "SYNC_MAX_BACKOFF_MS", "HTTP_TIMEOUT_MS", "STRICT_STOCK"} {
		t.Setenv(k, "")
	}
	cfg := LoadPOS()
	assert.Equal(t, "8090", cfg.HTTPPort)
	assert.Equal(t, "http://localhost:8080/api", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, 5*time.Minute, cfg.MaxBackoff)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.StrictStock)
}

func TestLoadPOSOverridesAndBadValues(t *testing.T) {
	t.Setenv("SERVER_URL", "https://sync.example.com/api/")
	t.Setenv("SYNC_INTERVAL_MS", "250")
	t.Setenv("SYNC_MAX_BACKOFF_MS", "not-a-number")
	t.Setenv("HTTP_TIMEOUT_MS", "-5")
	t.Setenv("STRICT_STOCK", "true")

	cfg := LoadPOS()
	assert.Equal(t, "https://sync.example.com/api", cfg.ServerURL)
	assert.Equal(t, 250*time.Millisecond, cfg.SyncInterval)
	assert.Equal(t, 5*time.Minute, cfg.MaxBackoff)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.True(t, cfg.StrictStock)
}
