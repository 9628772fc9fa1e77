package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "https://rqs.racetigertiming.com", cfg.Provider.BaseURL)
	assert.Equal(t, "000001", cfg.Provider.PartnerCode)
	assert.Equal(t, 15000, cfg.Provider.TimeoutMs)
	assert.Equal(t, 200, cfg.Provider.MaxPages)
	assert.Equal(t, 15, cfg.Scheduler.SyncIntervalSeconds)
	assert.Equal(t, 60, cfg.Scheduler.CutoffIntervalSeconds)
	assert.True(t, cfg.Scheduler.SyncEnabled)
	assert.Equal(t, 2000, cfg.Query.ListLimit)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	env := "PROVIDER_MAX_PAGES=5\nSCHEDULER_SYNC_ENABLED=false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PROVIDER_MAX_PAGES")
		os.Unsetenv("SCHEDULER_SYNC_ENABLED")
	})

	t.Setenv("DATABASE_DRIVER", "sqlite")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Provider.MaxPages)
	assert.False(t, cfg.Scheduler.SyncEnabled)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
		msg  string
	}{
		{"zero pages", "PROVIDER_MAX_PAGES", "provider.max_pages"},
		{"zero sync interval", "SCHEDULER_SYNC_INTERVAL_SECONDS", "scheduler.sync_interval_seconds"},
		{"zero list limit", "QUERY_LIST_LIMIT", "query.list_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, "0")
			_, err := LoadConfig(t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDefaults_Keys(t *testing.T) {
	keys := defaults(reflect.TypeOf(Config{}), "")
	assert.Equal(t, "15", keys["scheduler.sync_interval_seconds"])
	assert.Equal(t, "race-timing", keys["storage.bucket"])
	assert.Contains(t, keys, "database.password")
}
