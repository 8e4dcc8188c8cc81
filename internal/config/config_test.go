package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.GetServerAddr())
	assert.Equal(t, StorageSQLite, cfg.Storage.Type)
	assert.Equal(t, "tasks", cfg.Storage.Key)
	assert.Equal(t, "reminders", cfg.Notifications.StorageKey)
	assert.Equal(t, 30*time.Second, cfg.Notifications.CheckInterval)
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
  host: 127.0.0.1
storage:
  type: inmemory
logging:
  development: true
notifications:
  check_interval: 5s
  batch_size: 10
`)
	t.Setenv("TODO_SERVER_PORT", "7070")
	t.Setenv("TODO_NOTIFICATIONS_ENABLED", "false")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7070", cfg.GetServerAddr())
	assert.Equal(t, StorageInMemory, cfg.Storage.Type)
	assert.True(t, cfg.Logging.Development)
	assert.False(t, cfg.Notifications.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Notifications.CheckInterval)
	assert.Equal(t, 10, cfg.Notifications.BatchSize)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown storage", content: "storage:\n  type: redis\n"},
		{name: "postgres without url", content: "storage:\n  type: postgres\n"},
		{name: "zero batch", content: "notifications:\n  batch_size: 0\n"},
		{name: "broken yaml", content: "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
		assert.Error(t, err)
	})
}

func TestConfig_YAML(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, out, "check_interval: 30s")

	var decoded Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, *cfg, decoded)
}
