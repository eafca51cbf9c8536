package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Device connection
	Device DeviceConfig `json:"device"`

	// Sync behavior
	Sync SyncConfig `json:"sync"`

	// Markdown to PDF conversion
	Convert ConvertConfig `json:"convert"`

	// File watching
	Watch WatchConfig `json:"watch"`

	// Storage paths
	Storage StorageConfig `json:"storage"`

	// Logging
	Log LogConfig `json:"log"`
}

// DeviceConfig for the SSH connection to the tablet.
type DeviceConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	User              string        `json:"user"`
	Password          string        `json:"password,omitempty"`
	ConnectTimeout    time.Duration `json:"connect_timeout"`
	MaxRetries        int           `json:"max_retries"`
	RetryDelay        time.Duration `json:"retry_delay"`
	KeepaliveInterval time.Duration `json:"keepalive_interval"`

	// Flat directory holding the device's document store.
	DocumentDir string `json:"document_dir"`
}

// SyncConfig for synchronization behavior.
type SyncConfig struct {
	LocalDir       string   `json:"local_dir"`
	RemoteDir      string   `json:"remote_dir"`
	IgnorePatterns []string `json:"ignore_patterns"`
	ConvertToPDF   bool     `json:"convert_to_pdf"`
	PDFOutputDir   string   `json:"pdf_output_dir"`
	SyncOnStartup  bool     `json:"sync_on_startup"`
}

// ConvertConfig for PDF generation.
type ConvertConfig struct {
	PageSize        string  `json:"page_size"` // A4, Letter
	FontFamily      string  `json:"font_family"`
	FontSize        float64 `json:"font_size"`
	MarginMM        float64 `json:"margin_mm"`
	LineHeight      float64 `json:"line_height"`
	EnableTables    bool    `json:"enable_tables"`
	EnableFootnotes bool    `json:"enable_footnotes"`
}

// WatchConfig for local file watching.
type WatchConfig struct {
	Enabled       bool          `json:"enabled"`
	Recursive     bool          `json:"recursive"`
	DebounceDelay time.Duration `json:"debounce_delay"`
}

// StorageConfig for local file paths.
type StorageConfig struct {
	DataDir  string `json:"data_dir"`
	StateDir string `json:"state_dir"`
	TempDir  string `json:"temp_dir"`

	// StateBackend selects the snapshot store: "json" or "sqlite".
	StateBackend string `json:"state_backend"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // text, json
	File       string `json:"file"`   // empty = stdout
	MaxSize    int    `json:"max_size"`
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"`
}

// DefaultConfig returns config with sensible defaults. The device defaults
// match the tablet's USB network interface.
func DefaultConfig() *Config {
	dataDir := ".remarksync"

	return &Config{
		Device: DeviceConfig{
			Host:              "10.11.99.1",
			Port:              22,
			User:              "root",
			ConnectTimeout:    10 * time.Second,
			MaxRetries:        3,
			RetryDelay:        2 * time.Second,
			KeepaliveInterval: 30 * time.Second,
			DocumentDir:       "/home/root/.local/share/remarkable/xochitl",
		},
		Sync: SyncConfig{
			LocalDir:       "sync",
			RemoteDir:      "/home/root/remarksync",
			IgnorePatterns: []string{".*", "*.tmp", "*.swp", ".git"},
			ConvertToPDF:   true,
			PDFOutputDir:   filepath.Join(dataDir, "pdf"),
			SyncOnStartup:  true,
		},
		Convert: ConvertConfig{
			PageSize:        "A4",
			FontFamily:      "Helvetica",
			FontSize:        12,
			MarginMM:        20,
			LineHeight:      1.5,
			EnableTables:    true,
			EnableFootnotes: true,
		},
		Watch: WatchConfig{
			Enabled:       true,
			Recursive:     true,
			DebounceDelay: time.Second,
		},
		Storage: StorageConfig{
			DataDir:      dataDir,
			StateDir:     filepath.Join(dataDir, "state"),
			TempDir:      filepath.Join(dataDir, "temp"),
			StateBackend: "json",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			File:       "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Device.Host == "" {
		return errors.New("device.host is required")
	}

	if c.Device.Port <= 0 || c.Device.Port > 65535 {
		return fmt.Errorf("device.port out of range: %d", c.Device.Port)
	}

	if c.Device.ConnectTimeout <= 0 {
		return errors.New("device.connect_timeout must be positive")
	}

	if c.Sync.LocalDir == "" {
		return errors.New("sync.local_dir is required")
	}

	if c.Sync.RemoteDir == "" {
		return errors.New("sync.remote_dir is required")
	}

	if c.Convert.FontSize <= 0 {
		return errors.New("convert.font_size must be positive")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	validBackends := map[string]bool{"": true, "json": true, "sqlite": true}
	if !validBackends[c.Storage.StateBackend] {
		return fmt.Errorf("invalid state backend: %s", c.Storage.StateBackend)
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDir,
		c.Storage.StateDir,
		c.Storage.TempDir,
		c.Sync.PDFOutputDir,
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
