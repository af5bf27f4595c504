package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "shelfmark", cfg.Issuer)
	require.Equal(t, "shelfmark-api", cfg.Audience)
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	require.Equal(t, 24*time.Hour, cfg.MaxTokenAge)
	require.Equal(t, 7*24*time.Hour, cfg.RevocationRetention)
	require.Equal(t, 5*time.Minute, cfg.RotationWindow)
	require.Equal(t, time.Duration(0), cfg.RotationGrace)
	require.Equal(t, time.Hour, cfg.ReactivationWindow)
	require.Equal(t, 256, cfg.EventBufferSize)
	require.Equal(t, 5, cfg.LoginRatePerMinute)
	require.Equal(t, 5, cfg.LoginRateBurst)
	require.Equal(t, 8080, cfg.Port)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("AUTH_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("ROTATION_GRACE", "10s")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 10*time.Second, cfg.RotationGrace)
	require.Equal(t, 9090, cfg.Port)
}

func TestLoadConfigRejects(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("AUTH_SECRET", "")

		_, err := LoadConfig()
		require.Error(t, err)
		require.Contains(t, err.Error(), "AUTH_SECRET")
	})

	t.Run("retention shorter than refresh lifetime", func(t *testing.T) {
		t.Setenv("AUTH_SECRET", "0123456789abcdef0123456789abcdef")
		t.Setenv("REFRESH_TOKEN_TTL", "168h")
		t.Setenv("REVOCATION_RETENTION", "24h")

		_, err := LoadConfig()
		require.Error(t, err)
		require.Contains(t, err.Error(), "REVOCATION_RETENTION")
	})
}
