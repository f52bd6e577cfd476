package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/alkime/voicecollector/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears keys for the duration of the test. envconfig treats an
// empty variable as set, so t.Setenv(key, "") alone would skip defaults.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()

	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	unsetEnv(t, "ENV", "PORT", "SESSION_TTL", "UPLOAD_ATTEMPTS", "DRY_RUN", "DRY_RUN_DELAY",
		"CSP_MODE", "MAX_UPLOAD_BYTES", "TRANSCRIBE", "PLAYBACK_TIMEOUT")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.EnvDevelopment, cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, uint(3), cfg.UploadAttempts)
	assert.Equal(t, 1500*time.Millisecond, cfg.DryRunDelay)
	assert.Equal(t, 30*time.Second, cfg.PlaybackTimeout)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_Environment(t *testing.T) {
	unsetEnv(t, "UPLOAD_ATTEMPTS", "MAX_UPLOAD_BYTES", "DRY_RUN_DELAY")
	t.Setenv("ENV", "production")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("CSP_MODE", "strict")
	t.Setenv("TRANSCRIBE", "true")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.Transcribe)
}

func TestLoadConfig_Invalid(t *testing.T) {
	unsetEnv(t, "SESSION_TTL", "MAX_UPLOAD_BYTES")
	t.Setenv("CSP_MODE", "loose")
	t.Setenv("UPLOAD_ATTEMPTS", "0")
	t.Setenv("PLAYBACK_TIMEOUT", "-1s")

	_, err := config.LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CSP_MODE")
	assert.Contains(t, err.Error(), "UPLOAD_ATTEMPTS")
	assert.Contains(t, err.Error(), "PLAYBACK_TIMEOUT")
}

func TestBuildCSP(t *testing.T) {
	t.Parallel()

	strict := config.BuildCSP("strict")
	assert.Contains(t, strict, "script-src 'self';")
	assert.Contains(t, strict, "media-src 'self' blob:")

	relaxed := config.BuildCSP("relaxed")
	assert.Contains(t, relaxed, "'unsafe-inline'")
	assert.Contains(t, relaxed, "media-src")
}
