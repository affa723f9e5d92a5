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
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "./stride.db", cfg.Database.Path)
	assert.Equal(t, "none", cfg.Health.Provider)
	assert.Equal(t, 15*time.Minute, cfg.Sync.IntervalDuration())
	assert.Equal(t, 30*time.Second, cfg.Sync.TriggerLimitDuration())
	assert.False(t, cfg.Leaderboard.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
database:
  path: /tmp/steps.db
health:
  provider: bridge
  bridge_url: http://phone.local:9000
sync:
  interval: 60
  timezone: Europe/Berlin
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/steps.db", cfg.Database.Path)
	assert.Equal(t, "bridge", cfg.Health.Provider)
	assert.Equal(t, "http://phone.local:9000", cfg.Health.BridgeURL)
	assert.Equal(t, time.Minute, cfg.Sync.IntervalDuration())

	loc, err := cfg.Sync.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STRIDE_HEALTH_PROVIDER", "googlefit")
	t.Setenv("STRIDE_LEADERBOARD_DSN", "postgres://u:p@db/steps")
	t.Setenv("STRIDE_SERVER_PORT", "9999")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "googlefit", cfg.Health.Provider)
	assert.Equal(t, "postgres://u:p@db/steps", cfg.Leaderboard.DSN)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLocationDefaultsToLocal(t *testing.T) {
	loc, err := SyncConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	_, err = SyncConfig{Timezone: "Not/AZone"}.Location()
	assert.Error(t, err)
}

func TestAuthInsecureSecret(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionSecret, cfg.Auth.SessionSecret)
	assert.False(t, cfg.Auth.InsecureSecret(), "no password, nothing to protect")

	cfg.Auth.PasswordHash = "$2a$10$hash"
	assert.True(t, cfg.Auth.InsecureSecret())

	cfg.Auth.SessionSecret = ""
	assert.True(t, cfg.Auth.InsecureSecret())

	cfg.Auth.SessionSecret = "a-real-secret-from-the-environment"
	assert.False(t, cfg.Auth.InsecureSecret())
}
