package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Metadata describes a single backup.
type Metadata struct {
	ID          string    `json:"id"`
	SourcePath  string    `json:"source_path"`
	BackupPath  string    `json:"backup_path"`
	Kind        Kind      `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
	Hash        string    `json:"hash"` // sha256 of the content
	Size        int64     `json:"size"`
	Description string    `json:"description,omitempty"`
	// Guides and Feeds count the hierarchy the backup holds, when known.
	Guides int `json:"guides,omitempty"`
	Feeds  int `json:"feeds,omitempty"`
}

// Index lists every backup of a Manager.
type Index struct {
	Version string              `json:"version"`
	Updated time.Time           `json:"updated"`
	Backups map[string]Metadata `json:"backups"`

	path string
}

const (
	// IndexVersion is the current version of the backup index format
	IndexVersion = "1.0"
	// IndexFilename is the name of the index file
	IndexFilename = "index.json"
)

func loadIndex(dir string) (*Index, error) {
	indexPath := filepath.Join(dir, IndexFilename)

	// #nosec G304 - indexPath is built from the configured backup directory
	data, err := os.ReadFile(indexPath)
	if os.IsNotExist(err) {
		return &Index{
			Version: IndexVersion,
			Updated: time.Now(),
			Backups: make(map[string]Metadata),
			path:    indexPath,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}
	if index.Backups == nil {
		index.Backups = make(map[string]Metadata)
	}
	index.path = indexPath
	return &index, nil
}

func (idx *Index) save() error {
	if err := os.MkdirAll(filepath.Dir(idx.path), DirPerm); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	idx.Updated = time.Now()
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	// #nosec G306 - index.json is metadata and can be group-readable
	if err := os.WriteFile(idx.path, data, FilePerm); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	return nil
}

func (idx *Index) add(m Metadata) error {
	idx.Backups[m.ID] = m
	return idx.save()
}

func (idx *Index) remove(id string) error {
	delete(idx.Backups, id)
	return idx.save()
}

// List returns all backups, newest first.
func (idx *Index) List() []Metadata {
	backups := make([]Metadata, 0, len(idx.Backups))
	for _, b := range idx.Backups {
		backups = append(backups, b)
	}
	sortNewestFirst(backups)
	return backups
}

func sortNewestFirst(backups []Metadata) {
	sort.Slice(backups, func(i, j int) bool {
		if backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].ID > backups[j].ID
		}
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
}
