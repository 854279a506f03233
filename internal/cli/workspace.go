package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/klauern/feedsync/internal/backup"
	"github.com/klauern/feedsync/internal/config"
	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/state"
	"github.com/klauern/feedsync/internal/store"
	"github.com/klauern/feedsync/internal/tombstone"
)

// workspace holds the local data a command works on.
type workspace struct {
	cfg        *config.Config
	logger     *slog.Logger
	backups    *backup.Manager
	file       *store.File
	local      *model.Hierarchy
	state      *state.Store
	tombstones *tombstone.SQLite
}

// openWorkspace loads the guides file, the sync state and the tombstone
// database named by cfg. The caller must Close it.
func openWorkspace(cfg *config.Config) (*workspace, error) {
	logger := logging.Default()
	ws := &workspace{
		cfg:     cfg,
		logger:  logger,
		backups: backup.NewManager(cfg.Backup.Location),
	}

	opts := []store.Option{store.WithLogger(logger)}
	if cfg.Backup.Enabled {
		opts = append(opts, store.WithBackups(ws.backups))
	}
	ws.file = store.New(cfg.Storage.Hierarchy, opts...)

	local, err := ws.file.Load()
	if err != nil {
		return nil, err
	}
	ws.local = local

	ws.state, err = state.Open(cfg.Storage.State)
	if err != nil {
		return nil, fmt.Errorf("failed to open sync state: %w", err)
	}

	ws.tombstones, err = tombstone.OpenSQLite(cfg.Storage.Tombstones)
	if err != nil {
		return nil, fmt.Errorf("failed to open tombstones: %w", err)
	}

	logger.Debug("workspace opened",
		logging.Path(cfg.Storage.Hierarchy),
		logging.Count(len(local.Guides())),
	)
	return ws, nil
}

// save writes the local hierarchy back to disk.
func (ws *workspace) save() error {
	return ws.local.Update(ws.file.Save)
}

// Close releases the tombstone database.
func (ws *workspace) Close() error {
	if ws.tombstones == nil {
		return nil
	}
	return ws.tombstones.Close()
}

// cleanupBackups applies the configured retention. Failures only warn.
func (ws *workspace) cleanupBackups() []string {
	if !ws.cfg.Backup.Enabled {
		return nil
	}
	opts := backup.DefaultCleanupOptions()
	opts.MaxBackups = ws.cfg.Backup.MaxBackups
	opts.MaxAge = ws.cfg.Backup.MaxAge

	deleted, err := ws.backups.Cleanup(opts)
	if err != nil {
		ws.logger.Warn("backup cleanup failed", logging.Err(err))
		return nil
	}
	return deleted
}

// backupState saves a copy of the sync state file before a run changes it.
func (ws *workspace) backupState() {
	if !ws.cfg.Backup.Enabled {
		return
	}
	if _, err := os.Stat(ws.state.Path()); err != nil {
		return
	}
	if _, err := ws.backups.Create(ws.state.Path(), backup.Options{
		Kind:        backup.KindState,
		Description: "before sync",
	}); err != nil {
		ws.logger.Warn("failed to back up sync state", logging.Err(err))
	}
}

// closeWorkspace closes ws and folds the close error into err.
func closeWorkspace(ws *workspace, err *error) {
	if cerr := ws.Close(); cerr != nil {
		*err = errors.Join(*err, fmt.Errorf("failed to close tombstones: %w", cerr))
	}
}
