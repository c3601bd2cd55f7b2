package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDotEnv(t *testing.T, path string) {
	t.Helper()
	orig := dotEnvFile
	t.Cleanup(func() { dotEnvFile = orig })
	dotEnvFile = path
}

func TestParseEnv_OverlaysSetVariables(t *testing.T) {
	withDotEnv(t, filepath.Join(t.TempDir(), "missing.env"))

	t.Setenv("ACCESS_TOKEN_SECRET", "a-secret")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "5m")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "48h")
	t.Setenv("SECURE_COOKIES", "false")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "a-secret", c.AccessTokenSecret)
	assert.Equal(t, 5*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 48*time.Hour, c.RefreshTokenValidityDuration)
	assert.False(t, c.SecureCookies)
	assert.Equal(t, "refreshSecret", c.RefreshTokenSecret, "unset variables keep defaults")
}

func TestParseEnv_LoadsDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CORS_ORIGIN=https://app.example\n"), 0o600))
	withDotEnv(t, path)
	t.Cleanup(func() { _ = os.Unsetenv("CORS_ORIGIN") })

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, "https://app.example", c.CORSOrigin)
}

func TestParseEnv_MalformedPanics(t *testing.T) {
	withDotEnv(t, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("UPLOAD_TIMEOUT", "forever")

	var c Config
	require.Panics(t, func() { parseEnv(&c) })
}

func TestParseEnv_DayDurations(t *testing.T) {
	withDotEnv(t, filepath.Join(t.TempDir(), "missing.env"))

	t.Setenv("ACCESS_TOKEN_EXPIRY", "1d")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "10d")
	t.Setenv("UPLOAD_TIMEOUT", "45s")

	var c Config
	c.LoadDefaults()
	require.NotPanics(t, func() { parseEnv(&c) })

	assert.Equal(t, 24*time.Hour, c.AccessTokenValidityDuration)
	assert.Equal(t, 240*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, 45*time.Second, c.UploadTimeout)
}
