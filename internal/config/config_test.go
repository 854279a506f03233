package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauern/feedsync/internal/util"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Check sync defaults
	if !cfg.Sync.Feeds || !cfg.Sync.Preferences || !cfg.Sync.PingPublished {
		t.Errorf("expected feeds, preferences and pings enabled by default, got %+v", cfg.Sync)
	}
	if cfg.Sync.CopyServiceLayout {
		t.Error("expected CopyServiceLayout to be false by default")
	}
	if !cfg.Sync.Confirm {
		t.Error("expected Confirm to be true by default")
	}

	// Check service defaults
	if cfg.Service.Timeout != 30*time.Second {
		t.Errorf("expected Service.Timeout to be 30s, got %v", cfg.Service.Timeout)
	}

	// Check output defaults
	if cfg.Output.Format != "text" {
		t.Errorf("expected Output.Format to be 'text', got %q", cfg.Output.Format)
	}
	if cfg.Output.Color != "auto" {
		t.Errorf("expected Output.Color to be 'auto', got %q", cfg.Output.Color)
	}

	// Check backup defaults
	if !cfg.Backup.Enabled {
		t.Error("expected Backup.Enabled to be true by default")
	}
	if cfg.Backup.MaxBackups != 10 {
		t.Errorf("expected Backup.MaxBackups to be 10, got %d", cfg.Backup.MaxBackups)
	}

	// Check refresh defaults
	if cfg.Refresh.Workers != 4 {
		t.Errorf("expected Refresh.Workers to be 4, got %d", cfg.Refresh.Workers)
	}
	if cfg.Refresh.AllowPrivate {
		t.Error("expected Refresh.AllowPrivate to be false by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestDefaultPathsFollowHome(t *testing.T) {
	home := util.TempHome(t)

	cfg := Default()
	paths := map[string]string{
		"hierarchy":  cfg.Storage.Hierarchy,
		"state":      cfg.Storage.State,
		"tombstones": cfg.Storage.Tombstones,
		"backups":    cfg.Backup.Location,
	}
	for name, p := range paths {
		if filepath.Dir(p) != home {
			t.Errorf("%s path %q is not under %q", name, p, home)
		}
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := Default()
	cfg.Service.URL = "https://sync.example.com"
	cfg.Service.Email = "me@example.com"
	cfg.Service.Password = "secret"
	cfg.Sync.PingPublished = false
	cfg.Refresh.Timeout = 5 * time.Second
	cfg.Output.Verbose = true
	cfg.Backup.MaxBackups = 20

	if err := cfg.SaveToPath(configPath); err != nil {
		t.Fatalf("SaveToPath failed: %v", err)
	}

	loaded, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if loaded.Service.URL != "https://sync.example.com" || loaded.Service.Email != "me@example.com" {
		t.Errorf("service settings not restored: %+v", loaded.Service)
	}
	if loaded.Service.Password != "" {
		t.Error("password must not be written to the config file")
	}
	if loaded.Sync.PingPublished {
		t.Error("expected PingPublished to be false")
	}
	if loaded.Refresh.Timeout != 5*time.Second {
		t.Errorf("expected refresh timeout 5s, got %v", loaded.Refresh.Timeout)
	}
	if !loaded.Output.Verbose {
		t.Error("expected Verbose to be true")
	}
	if loaded.Backup.MaxBackups != 20 {
		t.Errorf("expected MaxBackups 20, got %d", loaded.Backup.MaxBackups)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		envValue string
		check    func(*Config) bool
	}{
		{
			name:     "service url",
			envKey:   "FEEDSYNC_SERVICE_URL",
			envValue: "https://other.example.com",
			check:    func(c *Config) bool { return c.Service.URL == "https://other.example.com" },
		},
		{
			name:     "service password",
			envKey:   "FEEDSYNC_SERVICE_PASSWORD",
			envValue: "hunter2",
			check:    func(c *Config) bool { return c.Service.Password == "hunter2" },
		},
		{
			name:     "service timeout",
			envKey:   "FEEDSYNC_SERVICE_TIMEOUT",
			envValue: "45s",
			check:    func(c *Config) bool { return c.Service.Timeout == 45*time.Second },
		},
		{
			name:     "invalid timeout ignored",
			envKey:   "FEEDSYNC_SERVICE_TIMEOUT",
			envValue: "soon",
			check:    func(c *Config) bool { return c.Service.Timeout == 30*time.Second },
		},
		{
			name:     "sync feeds",
			envKey:   "FEEDSYNC_SYNC_FEEDS",
			envValue: "false",
			check:    func(c *Config) bool { return !c.Sync.Feeds },
		},
		{
			name:     "copy service layout",
			envKey:   "FEEDSYNC_SYNC_COPY_SERVICE_LAYOUT",
			envValue: "yes",
			check:    func(c *Config) bool { return c.Sync.CopyServiceLayout },
		},
		{
			name:     "storage tombstones",
			envKey:   "FEEDSYNC_STORAGE_TOMBSTONES",
			envValue: "/tmp/t.db",
			check:    func(c *Config) bool { return c.Storage.Tombstones == "/tmp/t.db" },
		},
		{
			name:     "backup max backups",
			envKey:   "FEEDSYNC_BACKUP_MAX_BACKUPS",
			envValue: "3",
			check:    func(c *Config) bool { return c.Backup.MaxBackups == 3 },
		},
		{
			name:     "negative max backups ignored",
			envKey:   "FEEDSYNC_BACKUP_MAX_BACKUPS",
			envValue: "-1",
			check:    func(c *Config) bool { return c.Backup.MaxBackups == 10 },
		},
		{
			name:     "refresh workers",
			envKey:   "FEEDSYNC_REFRESH_WORKERS",
			envValue: "8",
			check:    func(c *Config) bool { return c.Refresh.Workers == 8 },
		},
		{
			name:     "refresh rate",
			envKey:   "FEEDSYNC_REFRESH_RATE",
			envValue: "0.5",
			check:    func(c *Config) bool { return c.Refresh.Rate == 0.5 },
		},
		{
			name:     "refresh allow private",
			envKey:   "FEEDSYNC_REFRESH_ALLOW_PRIVATE",
			envValue: "1",
			check:    func(c *Config) bool { return c.Refresh.AllowPrivate },
		},
		{
			name:     "server listen",
			envKey:   "FEEDSYNC_SERVER_LISTEN",
			envValue: ":9000",
			check:    func(c *Config) bool { return c.Server.Listen == ":9000" },
		},
		{
			name:     "output color",
			envKey:   "FEEDSYNC_OUTPUT_COLOR",
			envValue: "never",
			check:    func(c *Config) bool { return c.Output.Color == "never" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envKey, tt.envValue)

			cfg := Default()
			cfg.applyEnvironment()

			if !tt.check(cfg) {
				t.Errorf("environment override %s=%s did not apply as expected", tt.envKey, tt.envValue)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	tests := map[string]bool{
		"true":  true,
		"TRUE":  true,
		"1":     true,
		"yes":   true,
		"on":    true,
		" on ":  true,
		"false": false,
		"0":     false,
		"no":    false,
		"off":   false,
		"":      false,
		"maybe": false,
	}

	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			if got := parseBool(input); got != want {
				t.Errorf("parseBool(%q) = %v, want %v", input, got, want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		mutate  func(*Config)
		wantErr bool
	}{
		"defaults":          {mutate: func(*Config) {}},
		"zero timeout":      {mutate: func(c *Config) { c.Service.Timeout = 0 }, wantErr: true},
		"no workers":        {mutate: func(c *Config) { c.Refresh.Workers = 0 }, wantErr: true},
		"negative backups":  {mutate: func(c *Config) { c.Backup.MaxBackups = -2 }, wantErr: true},
		"unknown color":     {mutate: func(c *Config) { c.Output.Color = "rainbow" }, wantErr: true},
		"color never":       {mutate: func(c *Config) { c.Output.Color = "never" }},
		"unlimited backups": {mutate: func(c *Config) { c.Backup.MaxBackups = 0 }},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	tmpDir := util.TempHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should not fail for non-existent file: %v", err)
	}

	if !cfg.Sync.Feeds {
		t.Error("expected defaults when no config file exists")
	}
	if cfg.Storage.Hierarchy != filepath.Join(tmpDir, "guides.yaml") {
		t.Errorf("hierarchy path = %q", cfg.Storage.Hierarchy)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// #nosec G306 - test file permissions are acceptable
	if err := os.WriteFile(configPath, []byte("invalid: yaml: content:"), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	if _, err := LoadFromPath(configPath); err == nil {
		t.Error("LoadFromPath should fail for invalid YAML")
	}
}

func TestPartialConfigMerge(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	configPath := filepath.Join(tmpDir, "config.yaml")

	partialConfig := `
sync:
  preferences: false
storage:
  hierarchy: "~/feeds/guides.yaml"
refresh:
  timeout: 10s
`
	// #nosec G306 - test file permissions are acceptable
	if err := os.WriteFile(configPath, []byte(partialConfig), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Sync.Preferences {
		t.Error("expected Preferences to be false from partial config")
	}
	if cfg.Refresh.Timeout != 10*time.Second {
		t.Errorf("expected refresh timeout 10s, got %v", cfg.Refresh.Timeout)
	}
	if want := filepath.Join(tmpDir, "feeds", "guides.yaml"); cfg.Storage.Hierarchy != want {
		t.Errorf("hierarchy path = %q, want %q", cfg.Storage.Hierarchy, want)
	}

	// Defaults should still be present for non-specified values
	if !cfg.Sync.Feeds {
		t.Error("expected Sync.Feeds to retain default value true")
	}
	if cfg.Backup.MaxBackups != 10 {
		t.Errorf("expected Backup.MaxBackups to retain default value 10, got %d", cfg.Backup.MaxBackups)
	}
}

func TestExists(t *testing.T) {
	util.TempHome(t)

	if Exists() {
		t.Error("Exists() should return false for non-existent config")
	}

	cfg := Default()
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !Exists() {
		t.Error("Exists() should return true after saving config")
	}
}
