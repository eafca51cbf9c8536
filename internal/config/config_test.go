package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/remarksync/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, "10.11.99.1", cfg.Device.Host)
	assert.Equal(t, 22, cfg.Device.Port)
	assert.Equal(t, "root", cfg.Device.User)
	assert.NotEmpty(t, cfg.Device.DocumentDir)
	assert.NotEmpty(t, cfg.Sync.RemoteDir)
	assert.Positive(t, cfg.Convert.FontSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Storage.StateBackend)

	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr string
	}{
		{
			name:    "valid config",
			modify:  func(c *config.Config) {},
			wantErr: "",
		},
		{
			name: "missing host",
			modify: func(c *config.Config) {
				c.Device.Host = ""
			},
			wantErr: "device.host is required",
		},
		{
			name: "port out of range",
			modify: func(c *config.Config) {
				c.Device.Port = 70000
			},
			wantErr: "device.port out of range",
		},
		{
			name: "missing local dir",
			modify: func(c *config.Config) {
				c.Sync.LocalDir = ""
			},
			wantErr: "sync.local_dir is required",
		},
		{
			name: "invalid log level",
			modify: func(c *config.Config) {
				c.Log.Level = "chatty"
			},
			wantErr: "invalid log level",
		},
		{
			name: "invalid state backend",
			modify: func(c *config.Config) {
				c.Storage.StateBackend = "bolt"
			},
			wantErr: "invalid state backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoaderFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{
		"device": {"host": "192.168.1.50"},
		"sync": {"remote_dir": "/home/root/notes"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("REMARKSYNC_LOG_LEVEL", "DEBUG")
	t.Setenv("REMARKABLE_PASSWORD", "hunter2")

	cfg, err := config.NewLoader(path).Load()
	require.NoError(t, err)

	// File values override defaults, env overrides file.
	assert.Equal(t, "192.168.1.50", cfg.Device.Host)
	assert.Equal(t, "/home/root/notes", cfg.Sync.RemoteDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "hunter2", cfg.Device.Password)

	// Untouched sections keep defaults.
	assert.Equal(t, 22, cfg.Device.Port)
}

func TestLoaderCompatibilityHostOverride(t *testing.T) {
	t.Setenv("REMARKABLE_IP", "10.0.0.7")

	cfg, err := config.NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", cfg.Device.Host)
}

func TestLoaderRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0600))

	_, err := config.NewLoader(path).Load()
	assert.Error(t, err)
}

func TestSaveExampleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.json")
	require.NoError(t, config.SaveExample(path))

	cfg, err := config.NewLoader(path).Load()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Device.Host, cfg.Device.Host)
}
