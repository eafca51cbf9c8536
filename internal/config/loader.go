package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a config loader.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envPrefix:  "REMARKSYNC_",
	}
}

// Load reads configuration from file and environment.
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Load from file if exists
	if l.configPath != "" {
		if err := l.loadFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		// Try default locations
		for _, path := range l.defaultPaths() {
			if _, err := os.Stat(path); err == nil {
				l.configPath = path
				if err := l.loadFile(cfg); err != nil {
					return nil, fmt.Errorf("load config file %s: %w", path, err)
				}
				break
			}
		}
	}

	// Override with environment variables
	if err := l.loadEnv(cfg); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	// Validate final config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// defaultPaths returns default config file locations.
func (l *Loader) defaultPaths() []string {
	paths := []string{
		"remarksync.json",
		".remarksync.json",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".config", "remarksync", "config.json"),
			filepath.Join(homeDir, ".remarksync", "config.json"),
		)
	}

	return paths
}

// loadFile reads config from JSON file.
func (l *Loader) loadFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}

	return nil
}

// loadEnv overrides config from environment variables.
func (l *Loader) loadEnv(cfg *Config) error {
	// Device settings
	if v := os.Getenv(l.envPrefix + "DEVICE_HOST"); v != "" {
		cfg.Device.Host = v
	}

	if v := os.Getenv(l.envPrefix + "DEVICE_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse DEVICE_PORT: %w", err)
		}
		cfg.Device.Port = n
	}

	if v := os.Getenv(l.envPrefix + "DEVICE_PASSWORD"); v != "" {
		cfg.Device.Password = v
	}

	if v := os.Getenv(l.envPrefix + "CONNECT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse CONNECT_TIMEOUT: %w", err)
		}
		cfg.Device.ConnectTimeout = d
	}

	// Sync settings
	if v := os.Getenv(l.envPrefix + "SYNC_DIR"); v != "" {
		cfg.Sync.LocalDir = v
	}

	if v := os.Getenv(l.envPrefix + "REMOTE_DIR"); v != "" {
		cfg.Sync.RemoteDir = v
	}

	if v := os.Getenv(l.envPrefix + "CONVERT_TO_PDF"); v != "" {
		cfg.Sync.ConvertToPDF = v == "true" || v == "1"
	}

	// Storage settings
	if v := os.Getenv(l.envPrefix + "DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
		// Update dependent paths
		cfg.Storage.StateDir = filepath.Join(v, "state")
		cfg.Storage.TempDir = filepath.Join(v, "temp")
		cfg.Sync.PDFOutputDir = filepath.Join(v, "pdf")
	}

	// Log settings
	if v := os.Getenv(l.envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}

	if v := os.Getenv(l.envPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}

	if v := os.Getenv(l.envPrefix + "LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	// Alternative environment variable names for compatibility
	if v := os.Getenv("REMARKABLE_IP"); v != "" {
		cfg.Device.Host = v
	}

	if v := os.Getenv("REMARKABLE_PASSWORD"); v != "" {
		cfg.Device.Password = v
	}

	return nil
}

// SaveExample writes an example config file.
func SaveExample(path string) error {
	cfg := DefaultConfig()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}
