package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: \"file::memory:\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.CheckIn.DuplicateWindowMinutes)
	assert.Equal(t, 5*time.Minute, cfg.CheckIn.DuplicateWindow)
	assert.Equal(t, "check_in_time", cfg.CheckIn.DuplicatePolicy)
	assert.Equal(t, 8*time.Second, cfg.CheckIn.RegistryWait)
	assert.Equal(t, 15*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, time.Hour, cfg.Registry.CacheTTL)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, 16, cfg.WorkerPool.Queue)
	assert.Equal(t, 24*time.Hour, cfg.Reconcile.MaxOpen)
	assert.False(t, cfg.Reconcile.Enabled)
}

func TestLoad_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `
checkin:
  duplicate_window_minutes: 2
  duplicate_policy: last_activity
registry:
  enabled: true
  search_url: "http://registry.local/search"
  input_names: [LicenceNo]
worker_pool:
  size: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.CheckIn.DuplicateWindow)
	assert.Equal(t, "last_activity", cfg.CheckIn.DuplicatePolicy)
	assert.True(t, cfg.Registry.Enabled)
	assert.Equal(t, []string{"LicenceNo"}, cfg.Registry.InputNames)
	assert.Equal(t, 48, cfg.WorkerPool.Queue)
}

func TestLoad_DuplicateWindowFromEnv(t *testing.T) {
	path := writeConfig(t, "checkin:\n  duplicate_window_minutes: 2\n")
	t.Setenv(DuplicateWindowEnv, "12")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12*time.Minute, cfg.CheckIn.DuplicateWindow)
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	path := writeConfig(t, "checkin: {}\n")
	t.Setenv(DuplicateWindowEnv, "five")

	_, err := Load(path)
	assert.ErrorContains(t, err, DuplicateWindowEnv)
}

func TestLoad_InvalidDuplicatePolicy(t *testing.T) {
	for _, policy := range []string{"last-activity", "LAST_ACTIVITY", "window"} {
		t.Run(policy, func(t *testing.T) {
			path := writeConfig(t, "checkin:\n  duplicate_policy: "+policy+"\n")

			_, err := Load(path)
			assert.ErrorContains(t, err, "checkin.duplicate_policy")
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
