package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allVars = []string{
	"PORT", "STORAGE_DRIVER", "DATABASE_URL", "STORAGE_TIMEOUT_SECONDS", "JWT_SECRET", "JWT_ISSUER",
	"JWT_TTL_MINUTES", "CORS_ALLOWED_ORIGINS", "DEFAULT_CURRENCY", "REDIS_ADDR", "REDIS_PASSWORD",
	"REDIS_DB", "NOTIFY_STREAM", "MAIL_FROM", "ADMIN_USERNAME", "ADMIN_EMAIL", "ADMIN_PASSWORD",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allVars {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 5*time.Second, cfg.StorageTimeout)
	assert.Equal(t, 60*time.Minute, cfg.JWTTTL)
	assert.Equal(t, "hometown-ledger", cfg.JWTIssuer)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, "notifications.email", cfg.NotifyStream)
	assert.False(t, cfg.BootstrapAdmin())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "Memory")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_TIMEOUT_SECONDS", "2")
	t.Setenv("JWT_TTL_MINUTES", "-4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("DEFAULT_CURRENCY", "eur")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_EMAIL", "root@example.com")
	t.Setenv("ADMIN_PASSWORD", "changeme123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, ":9090", cfg.HTTPAddress())
	assert.Equal(t, 2*time.Second, cfg.StorageTimeout)
	assert.Equal(t, 60*time.Minute, cfg.JWTTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.True(t, cfg.BootstrapAdmin())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"postgres without url", map[string]string{"JWT_SECRET": "x"}, "DATABASE_URL is required"},
		{"missing secret", map[string]string{"STORAGE_DRIVER": "memory"}, "JWT_SECRET is required"},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "sqlite", "JWT_SECRET": "x"}, "unknown STORAGE_DRIVER"},
		{"bad redis db", map[string]string{"STORAGE_DRIVER": "memory", "JWT_SECRET": "x", "REDIS_DB": "two"}, "invalid REDIS_DB"},
		{"bad currency", map[string]string{"STORAGE_DRIVER": "memory", "JWT_SECRET": "x", "DEFAULT_CURRENCY": "EURO"}, "invalid DEFAULT_CURRENCY"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
