package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rowstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "rowstore", cfg.AppName)
	require.Equal(t, StorageMemory, cfg.Storage.Mode)
	require.Equal(t, 3, cfg.Engine.ConflictRetries)
	require.Equal(t, 16, cfg.Engine.TableCacheSize)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, lvl)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
app_name: people
storage:
  mode: sqlite
  path: /tmp/people.sqlite
  busy_timeout_ms: 250
engine:
  conflict_retries: 5
log:
  level: debug
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "people", cfg.AppName)
	require.Equal(t, StorageSQLite, cfg.Storage.Mode)
	require.Equal(t, "/tmp/people.sqlite", cfg.Storage.Path)
	require.Equal(t, 250, cfg.Storage.BusyTimeoutMS)
	require.Equal(t, 5, cfg.Engine.ConflictRetries)
	// unset keys keep their defaults
	require.Equal(t, 16, cfg.Engine.TableCacheSize)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, lvl)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "engine:\n  conflict_retries: 5\n")
	t.Setenv("ROWSTORE_ENGINE_CONFLICT_RETRIES", "9")
	t.Setenv("ROWSTORE_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Engine.ConflictRetries)
	require.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "storage:\n  mode: tape\n"))
	require.ErrorContains(t, err, "storage.mode")

	_, err = LoadConfig(writeConfig(t, "engine:\n  conflict_retries: -1\n"))
	require.ErrorContains(t, err, "conflict_retries")

	_, err = LoadConfig(writeConfig(t, "log:\n  level: loud\n"))
	require.ErrorContains(t, err, "log.level")
}

func TestDefaultConfig_BadEnv(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	require.Equal(t, StorageMemory, cfg.Storage.Mode)

	t.Setenv("ROWSTORE_STORAGE_MODE", "tape")
	cfg, err = DefaultConfig()
	require.ErrorContains(t, err, "storage.mode")
	require.Nil(t, cfg)
}
