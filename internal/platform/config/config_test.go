package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "tunzymd2_", cfg.SessionIDPrefix)
	assert.Equal(t, "TUNZY-MD2", cfg.BrowserName)
	assert.Equal(t, 2*time.Second, cfg.PairingSettleDelay)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 100, cfg.MaxLiveClients)
	assert.True(t, cfg.PruneUnlinked)
	assert.False(t, cfg.PrintQR)
	assert.Equal(t, "sessions", cfg.SessionsRoot())
}

func TestLoad_CustomPortAndEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("PAIRING_SETTLE_DELAY", "500ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.PairingSettleDelay)
}

func TestSessionsRoot(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"default", Config{}, "sessions"},
		{"render", Config{Render: true}, RenderSessionsDir},
		{"explicit dir", Config{SessionsDir: "/data/sessions"}, "/data/sessions"},
		{"explicit dir wins over render", Config{Render: true, SessionsDir: "/data/sessions"}, "/data/sessions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.SessionsRoot())
		})
	}
}

func TestLoad_RenderFlag(t *testing.T) {
	t.Setenv("RENDER", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, RenderSessionsDir, cfg.SessionsRoot())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"non-numeric port", "PORT", "http", "PORT must be a number"},
		{"port out of range", "PORT", "70000", "PORT must be a number"},
		{"prefix with separator", "SESSION_ID_PREFIX", "../x", "SESSION_ID_PREFIX must not contain path characters"},
		{"zero request timeout", "REQUEST_TIMEOUT", "0s", "REQUEST_TIMEOUT must be positive"},
		{"negative settle delay", "PAIRING_SETTLE_DELAY", "-1s", "PAIRING_SETTLE_DELAY must not be negative"},
		{"ttl shorter than request timeout", "SESSION_TTL", "10s", "SESSION_TTL must be at least REQUEST_TIMEOUT"},
		{"no live clients", "MAX_LIVE_CLIENTS", "0", "MAX_LIVE_CLIENTS must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
