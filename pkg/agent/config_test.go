package agent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
node_id: node-1
controller_url: http://127.0.0.1:8420
token: abc123
listen_addr: ":9421"
heartbeat_interval: 2s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "node-1", cfg.NodeID)
	assert.Equal(t, "http://127.0.0.1:8420", cfg.ControllerURL)
	assert.Equal(t, "abc123", cfg.Token)
	assert.Equal(t, ":9421", cfg.ListenAddr)
	assert.Equal(t, 2*time.Second, cfg.HeartbeatInterval)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
node_id: node-1
controller_url: http://127.0.0.1:8420
token: abc123
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultHeartbeatInterval, cfg.HeartbeatInterval)
	assert.Equal(t, ":8421", cfg.ListenAddr)
}

func TestLoadConfig_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no node_id", "controller_url: http://x\ntoken: t\n"},
		{"no controller_url", "node_id: n\ntoken: t\n"},
		{"no token", "node_id: n\ncontroller_url: http://x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_FileMissing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestConfigSave_RoundTrip(t *testing.T) {
	path := writeConfig(t, `
node_id: node-1
controller_url: http://127.0.0.1:8420
token: old-token
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	cfg.Token = "new-token"
	require.NoError(t, cfg.Save(path))

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "new-token", reloaded.Token)
	assert.Equal(t, "node-1", reloaded.NodeID)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	cfg := &Config{
		NodeID:        "node-1",
		ControllerURL: "http://127.0.0.1:8420",
		Token:         "t",
	}
	require.NoError(t, cfg.Save(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.yml", entries[0].Name())
}
