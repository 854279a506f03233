// Package store persists the local guide hierarchy as YAML.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/klauern/feedsync/internal/backup"
	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/sync"
)

// ErrUnsupportedVersion is returned for a guides file written by a newer
// feedsync.
var ErrUnsupportedVersion = errors.New("unsupported guides file version")

// File reads and writes the guides file. When a backup manager is set, the
// previous file is backed up before every save.
type File struct {
	path    string
	backups *backup.Manager
	logger  *slog.Logger
}

var _ sync.Saver = (*File)(nil)

// Option customises a File.
type Option func(*File)

// WithBackups backs the file up through m before each save.
func WithBackups(m *backup.Manager) Option {
	return func(f *File) { f.backups = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *File) { f.logger = l }
}

// New creates a store for path.
func New(path string, opts ...Option) *File {
	f := &File{path: path, logger: logging.Default()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Path returns the guides file location.
func (f *File) Path() string { return f.path }

// Load reads the hierarchy. A missing file yields an empty hierarchy.
func (f *File) Load() (*model.Hierarchy, error) {
	// #nosec G304 - path comes from configuration
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return model.NewHierarchy(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read guides file: %w", err)
	}

	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse guides file %s: %w", f.path, err)
	}
	return model.Import(doc)
}

// Decode parses a guides document.
func Decode(data []byte) (*model.Document, error) {
	var doc model.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Version > model.DocumentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	return &doc, nil
}

// Save writes h to disk. The caller must hold the hierarchy lock.
func (f *File) Save(h *model.Hierarchy) error {
	doc := model.Export(h)
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode guides: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("failed to create guides directory: %w", err)
	}

	if f.backups != nil {
		if _, err := os.Stat(f.path); err == nil {
			meta, err := f.backups.Create(f.path, backup.Options{
				Kind:        backup.KindHierarchy,
				Description: "before save",
			})
			if err != nil {
				return fmt.Errorf("failed to back up guides file: %w", err)
			}
			f.logger.Debug("backed up guides file", logging.Path(meta.BackupPath))
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write guides file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace guides file: %w", err)
	}
	f.logger.Debug("saved guides", logging.Path(f.path), logging.Count(len(doc.Guides)))
	return nil
}
