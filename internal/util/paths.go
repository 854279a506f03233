//nolint:revive // var-naming - package name is meaningful
package util

import (
	"os"
	"path/filepath"
)

// HomeEnv names the environment variable that relocates the feedsync home.
const HomeEnv = "FEEDSYNC_HOME"

// HomeDir returns the user's home directory
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// FeedsyncHome returns the directory holding feedsync's files. It honours
// FEEDSYNC_HOME and falls back to ~/.feedsync.
func FeedsyncHome() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	return filepath.Join(HomeDir(), ".feedsync")
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	return filepath.Join(FeedsyncHome(), "config.yaml")
}

// HierarchyPath returns the default location of the local guides file.
func HierarchyPath() string {
	return filepath.Join(FeedsyncHome(), "guides.yaml")
}

// StatePath returns the default location of the sync state file.
func StatePath() string {
	return filepath.Join(FeedsyncHome(), "state.toml")
}

// TombstonesPath returns the default location of the tombstone database.
func TombstonesPath() string {
	return filepath.Join(FeedsyncHome(), "tombstones.db")
}

// BackupDir returns the directory holding hierarchy backups.
func BackupDir() string {
	return filepath.Join(FeedsyncHome(), "backups")
}

// CacheDir returns the directory holding fetch caches.
func CacheDir() string {
	return filepath.Join(FeedsyncHome(), "cache")
}

// ExpandPath resolves a leading "~/" against the home directory.
func ExpandPath(p string) string {
	if p == "~" {
		return HomeDir()
	}
	if len(p) > 1 && p[0] == '~' && (p[1] == '/' || p[1] == filepath.Separator) {
		return filepath.Join(HomeDir(), p[2:])
	}
	return p
}
