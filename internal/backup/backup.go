// Package backup keeps content-addressed copies of the local guides file so
// a sync-in that went wrong can be rolled back.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauern/feedsync/internal/util"
)

const (
	// DirPerm is the permission for backup directories (rwxr-x---)
	DirPerm = 0o750
	// FilePerm is the permission for backup files (rw-r-----)
	FilePerm = 0o640
)

var (
	// ErrNotFound is returned for an unknown backup id.
	ErrNotFound = errors.New("backup not found")
	// ErrCorrupted is returned when a backup no longer matches its hash.
	ErrCorrupted = errors.New("backup file corrupted")
)

// Kind names what a backup holds.
type Kind string

const (
	KindHierarchy Kind = "guides"
	KindState     Kind = "state"
)

// Options configures a single backup.
type Options struct {
	Kind        Kind
	Description string
	Guides      int
	Feeds       int
}

// Manager stores backups under one directory.
type Manager struct {
	dir string
	now func() time.Time
}

// NewManager creates a manager rooted at dir. An empty dir selects
// $FEEDSYNC_HOME/backups.
func NewManager(dir string) *Manager {
	if dir == "" {
		dir = util.BackupDir()
	}
	return &Manager{dir: dir, now: time.Now}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string { return m.dir }

// Create copies sourcePath into the backup directory and records it in the
// index. A source identical to the newest backup of the same file is not
// stored twice; the existing metadata is returned instead.
func (m *Manager) Create(sourcePath string, opts Options) (*Metadata, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source path %q: %w", sourcePath, err)
	}

	// #nosec G304 - sourcePath is controlled by the caller
	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file %q: %w", sourcePath, err)
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	index, err := loadIndex(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}
	if latest := m.latest(index, sourcePath); latest != nil && latest.Hash == hash {
		return latest, nil
	}

	if opts.Kind == "" {
		opts.Kind = KindHierarchy
	}
	kindDir := filepath.Join(m.dir, string(opts.Kind))
	if err := os.MkdirAll(kindDir, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	created := m.now()
	id := created.Format("20060102-150405.000-") + hash[:8]
	backupPath := filepath.Join(kindDir, id+filepath.Ext(sourcePath))
	if err := os.WriteFile(backupPath, content, FilePerm); err != nil {
		return nil, fmt.Errorf("failed to write backup file: %w", err)
	}

	meta := Metadata{
		ID:          id,
		SourcePath:  sourcePath,
		BackupPath:  backupPath,
		Kind:        opts.Kind,
		CreatedAt:   created,
		ModifiedAt:  info.ModTime(),
		Hash:        hash,
		Size:        info.Size(),
		Description: opts.Description,
		Guides:      opts.Guides,
		Feeds:       opts.Feeds,
	}
	if err := index.add(meta); err != nil {
		return nil, fmt.Errorf("failed to add backup to index: %w", err)
	}
	return &meta, nil
}

func (m *Manager) latest(index *Index, sourcePath string) *Metadata {
	for _, b := range index.List() {
		if b.SourcePath == sourcePath {
			return &b
		}
	}
	return nil
}

// Restore writes the content of backup id to targetPath after checking its
// hash. An empty targetPath restores to the original location.
func (m *Manager) Restore(id, targetPath string) (*Metadata, error) {
	meta, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	content, err := m.read(meta)
	if err != nil {
		return nil, err
	}

	if targetPath == "" {
		targetPath = meta.SourcePath
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create target directory: %w", err)
	}
	tmp := targetPath + ".tmp"
	if err := os.WriteFile(tmp, content, FilePerm); err != nil {
		return nil, fmt.Errorf("failed to write target file: %w", err)
	}
	if err := os.Rename(tmp, targetPath); err != nil {
		return nil, fmt.Errorf("failed to replace target file: %w", err)
	}
	return meta, nil
}

// Get returns the metadata of backup id.
func (m *Manager) Get(id string) (*Metadata, error) {
	index, err := loadIndex(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}
	meta, ok := index.Backups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return &meta, nil
}

// List returns all backups of kind, newest first. An empty kind lists all.
func (m *Manager) List(kind Kind) ([]Metadata, error) {
	index, err := loadIndex(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	backups := index.List()
	if kind == "" {
		return backups, nil
	}
	filtered := make([]Metadata, 0, len(backups))
	for _, b := range backups {
		if b.Kind == kind {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// Delete removes a backup file and its index entry.
func (m *Manager) Delete(id string) error {
	index, err := loadIndex(m.dir)
	if err != nil {
		return fmt.Errorf("failed to load backup index: %w", err)
	}
	return m.delete(index, id)
}

func (m *Manager) delete(index *Index, id string) error {
	meta, ok := index.Backups[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err := os.Remove(meta.BackupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete backup file: %w", err)
	}
	if err := index.remove(id); err != nil {
		return fmt.Errorf("failed to remove backup from index: %w", err)
	}
	return nil
}

// Verify checks that backup id is present and matches its recorded hash.
func (m *Manager) Verify(id string) error {
	meta, err := m.Get(id)
	if err != nil {
		return err
	}
	_, err = m.read(meta)
	return err
}

func (m *Manager) read(meta *Metadata) ([]byte, error) {
	f, err := os.Open(meta.BackupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	content, err := io.ReadAll(io.TeeReader(f, h))
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != meta.Hash {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrCorrupted, meta.Hash, got)
	}
	return content, nil
}
