package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 30*24*time.Hour, cfg.JWTExpire)
	assert.Equal(t, 30, cfg.JWTCookieExpire)
	assert.Equal(t, "disk", cfg.CertificateStore)
	assert.Equal(t, "admin@potatolearn.com", cfg.AdminEmail)
	assert.True(t, cfg.SeedOnStart)
	assert.False(t, cfg.MaintenanceEnabled)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("JWT_EXPIRE", "12h")
	t.Setenv("JWT_COOKIE_EXPIRE", "7")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 12*time.Hour, cfg.JWTExpire)
	assert.Equal(t, 7*24*time.Hour, cfg.CookieMaxAge())
	assert.True(t, cfg.CookieSecure)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown driver", "DB_DRIVER", "oracle"},
		{"unknown store", "CERTIFICATE_STORE", "s3"},
		{"bad expire", "JWT_EXPIRE", "soon"},
		{"zero cookie days", "JWT_COOKIE_EXPIRE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
