// Package config provides configuration management for feedsync.
// It supports YAML configuration files, environment variables, and sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/klauern/feedsync/internal/util"
)

// Config represents the complete feedsync configuration.
type Config struct {
	// Service configures the synchronisation service account
	Service ServiceConfig `yaml:"service"`

	// Sync configures what a synchronisation run covers
	Sync SyncConfig `yaml:"sync"`

	// Storage configures where local data lives
	Storage StorageConfig `yaml:"storage"`

	// Backup configures backups of the local hierarchy
	Backup BackupConfig `yaml:"backup"`

	// Refresh configures content refresh of newly adopted feeds
	Refresh RefreshConfig `yaml:"refresh"`

	// Server configures the reference service started by `feedsync serve`
	Server ServerConfig `yaml:"server"`

	// Output configures display preferences
	Output OutputConfig `yaml:"output"`
}

// ServiceConfig holds the service endpoint and account.
type ServiceConfig struct {
	URL      string        `yaml:"url"`
	Email    string        `yaml:"email"`
	Password string        `yaml:"password,omitempty"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SyncConfig holds synchronisation defaults.
type SyncConfig struct {
	Feeds         bool `yaml:"feeds"`
	Preferences   bool `yaml:"preferences"`
	PingPublished bool `yaml:"ping_published"`
	// CopyServiceLayout makes every inbound run a restore
	CopyServiceLayout bool `yaml:"copy_service_layout"`
	// Confirm asks before applying additions
	Confirm bool `yaml:"confirm"`
}

// StorageConfig holds the paths of the local data files.
type StorageConfig struct {
	Hierarchy  string `yaml:"hierarchy"`
	State      string `yaml:"state"`
	Tombstones string `yaml:"tombstones"`
}

// BackupConfig holds backup settings.
type BackupConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Location   string        `yaml:"location,omitempty"`
	MaxBackups int           `yaml:"max_backups"`
	MaxAge     time.Duration `yaml:"max_age"`
}

// RefreshConfig holds settings of the feed refresh workers.
type RefreshConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Workers      int           `yaml:"workers"`
	Rate         float64       `yaml:"rate"`
	Burst        int           `yaml:"burst"`
	Timeout      time.Duration `yaml:"timeout"`
	AllowPrivate bool          `yaml:"allow_private"`
}

// ServerConfig holds settings of the reference service.
type ServerConfig struct {
	Listen string  `yaml:"listen"`
	Rate   float64 `yaml:"rate"`
	Burst  int     `yaml:"burst"`
}

// OutputConfig holds display preferences.
type OutputConfig struct {
	// Format is the default export format (text, json, yaml)
	Format string `yaml:"format"`
	// Color is one of auto, always, never
	Color   string `yaml:"color"`
	Verbose bool   `yaml:"verbose"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			URL:     "http://127.0.0.1:8480",
			Timeout: 30 * time.Second,
		},
		Sync: SyncConfig{
			Feeds:         true,
			Preferences:   true,
			PingPublished: true,
			Confirm:       true,
		},
		Storage: StorageConfig{
			Hierarchy:  util.HierarchyPath(),
			State:      util.StatePath(),
			Tombstones: util.TombstonesPath(),
		},
		Backup: BackupConfig{
			Enabled:    true,
			Location:   util.BackupDir(),
			MaxBackups: 10,
			MaxAge:     30 * 24 * time.Hour,
		},
		Refresh: RefreshConfig{
			Enabled: true,
			Workers: 4,
			Rate:    2,
			Burst:   4,
			Timeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8480",
			Rate:   20,
			Burst:  40,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},
	}
}

// FilePath returns the path to the config file.
func FilePath() string {
	return util.ConfigPath()
}

// Load loads configuration from the default config file,
// falling back to defaults if the file doesn't exist.
func Load() (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is constructed from the trusted feedsync home
	data, err := os.ReadFile(FilePath())
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvironment()
			cfg.expandPaths()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvironment()
	cfg.expandPaths()
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	// #nosec G304 - path is provided by caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvironment()
	cfg.expandPaths()
	return cfg, nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path. The password is
// never written; it belongs in FEEDSYNC_SERVICE_PASSWORD.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	out := *c
	out.Service.Password = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks values that would make a run fail later in a confusing way.
func (c *Config) Validate() error {
	if c.Service.Timeout <= 0 {
		return fmt.Errorf("service.timeout must be positive, got %s", c.Service.Timeout)
	}
	if c.Refresh.Workers < 1 {
		return fmt.Errorf("refresh.workers must be at least 1, got %d", c.Refresh.Workers)
	}
	if c.Backup.MaxBackups < 0 {
		return fmt.Errorf("backup.max_backups must not be negative, got %d", c.Backup.MaxBackups)
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("output.color must be auto, always or never, got %q", c.Output.Color)
	}
	return nil
}

// applyEnvironment applies environment variable overrides.
// Environment variables follow the pattern FEEDSYNC_<SECTION>_<KEY>.
func (c *Config) applyEnvironment() {
	// Service settings
	if v := os.Getenv("FEEDSYNC_SERVICE_URL"); v != "" {
		c.Service.URL = v
	}
	if v := os.Getenv("FEEDSYNC_SERVICE_EMAIL"); v != "" {
		c.Service.Email = v
	}
	if v := os.Getenv("FEEDSYNC_SERVICE_PASSWORD"); v != "" {
		c.Service.Password = v
	}
	if v := os.Getenv("FEEDSYNC_SERVICE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Service.Timeout = d
		}
	}

	// Sync settings
	if v := os.Getenv("FEEDSYNC_SYNC_FEEDS"); v != "" {
		c.Sync.Feeds = parseBool(v)
	}
	if v := os.Getenv("FEEDSYNC_SYNC_PREFERENCES"); v != "" {
		c.Sync.Preferences = parseBool(v)
	}
	if v := os.Getenv("FEEDSYNC_SYNC_PING_PUBLISHED"); v != "" {
		c.Sync.PingPublished = parseBool(v)
	}
	if v := os.Getenv("FEEDSYNC_SYNC_COPY_SERVICE_LAYOUT"); v != "" {
		c.Sync.CopyServiceLayout = parseBool(v)
	}
	if v := os.Getenv("FEEDSYNC_SYNC_CONFIRM"); v != "" {
		c.Sync.Confirm = parseBool(v)
	}

	// Storage settings
	if v := os.Getenv("FEEDSYNC_STORAGE_HIERARCHY"); v != "" {
		c.Storage.Hierarchy = v
	}
	if v := os.Getenv("FEEDSYNC_STORAGE_STATE"); v != "" {
		c.Storage.State = v
	}
	if v := os.Getenv("FEEDSYNC_STORAGE_TOMBSTONES"); v != "" {
		c.Storage.Tombstones = v
	}

	// Backup settings
	if v := os.Getenv("FEEDSYNC_BACKUP_ENABLED"); v != "" {
		c.Backup.Enabled = parseBool(v)
	}
	if v := os.Getenv("FEEDSYNC_BACKUP_LOCATION"); v != "" {
		c.Backup.Location = v
	}
	if v := os.Getenv("FEEDSYNC_BACKUP_MAX_BACKUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Backup.MaxBackups = n
		}
	}
	if v := os.Getenv("FEEDSYNC_BACKUP_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Backup.MaxAge = d
		}
	}

	// Refresh settings
	if v := os.Getenv("FEEDSYNC_REFRESH_ENABLED"); v != "" {
		c.Refresh.Enabled = parseBool(v)
	}
	if v := os.Getenv("FEEDSYNC_REFRESH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Refresh.Workers = n
		}
	}
	if v := os.Getenv("FEEDSYNC_REFRESH_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.Refresh.Rate = f
		}
	}
	if v := os.Getenv("FEEDSYNC_REFRESH_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Refresh.Burst = n
		}
	}
	if v := os.Getenv("FEEDSYNC_REFRESH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Refresh.Timeout = d
		}
	}
	if v := os.Getenv("FEEDSYNC_REFRESH_ALLOW_PRIVATE"); v != "" {
		c.Refresh.AllowPrivate = parseBool(v)
	}

	// Server settings
	if v := os.Getenv("FEEDSYNC_SERVER_LISTEN"); v != "" {
		c.Server.Listen = v
	}

	// Output settings
	if v := os.Getenv("FEEDSYNC_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("FEEDSYNC_OUTPUT_COLOR"); v != "" {
		c.Output.Color = v
	}
	if v := os.Getenv("FEEDSYNC_OUTPUT_VERBOSE"); v != "" {
		c.Output.Verbose = parseBool(v)
	}
}

func (c *Config) expandPaths() {
	c.Storage.Hierarchy = util.ExpandPath(c.Storage.Hierarchy)
	c.Storage.State = util.ExpandPath(c.Storage.State)
	c.Storage.Tombstones = util.ExpandPath(c.Storage.Tombstones)
	c.Backup.Location = util.ExpandPath(c.Backup.Location)
}

// parseBool parses a boolean from common string representations.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Exists checks if a config file exists.
func Exists() bool {
	_, err := os.Stat(FilePath())
	return err == nil
}
