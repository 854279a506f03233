package backup

import (
	"fmt"
	"time"
)

// CleanupOptions configures backup cleanup behavior
type CleanupOptions struct {
	// MaxBackups limits the number of backups kept per source file (0 = unlimited)
	MaxBackups int
	// MaxAge is the maximum age of backups to keep (0 = unlimited)
	MaxAge time.Duration
	// KeepAtLeastOne keeps the newest backup of every source file
	KeepAtLeastOne bool
	// DryRun reports what would be deleted without deleting
	DryRun bool
}

// DefaultCleanupOptions returns the retention applied after a sync-in.
func DefaultCleanupOptions() CleanupOptions {
	return CleanupOptions{
		MaxBackups:     10,
		MaxAge:         30 * 24 * time.Hour,
		KeepAtLeastOne: true,
	}
}

// Cleanup removes backups outside the retention limits and returns the ids
// it removed (or would remove, in dry-run mode).
func (m *Manager) Cleanup(opts CleanupOptions) ([]string, error) {
	index, err := loadIndex(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	groups := make(map[string][]Metadata)
	for _, b := range index.List() {
		key := string(b.Kind) + ":" + b.SourcePath
		groups[key] = append(groups[key], b)
	}

	now := m.now()
	var doomed []string
	for _, backups := range groups {
		for i, b := range backups {
			expired := opts.MaxAge > 0 && now.Sub(b.CreatedAt) > opts.MaxAge
			overLimit := opts.MaxBackups > 0 && i >= opts.MaxBackups
			if !expired && !overLimit {
				continue
			}
			if i == 0 && opts.KeepAtLeastOne {
				continue
			}
			doomed = append(doomed, b.ID)
		}
	}

	if opts.DryRun {
		return doomed, nil
	}
	var deleted []string
	for _, id := range doomed {
		if err := m.delete(index, id); err != nil {
			return deleted, fmt.Errorf("failed to delete backup %q: %w", id, err)
		}
		deleted = append(deleted, id)
	}
	return deleted, nil
}

// Stats summarises the stored backups.
type Stats struct {
	TotalBackups int
	TotalSize    int64
	ByKind       map[Kind]int
	OldestBackup time.Time
	NewestBackup time.Time
}

// Stats returns statistics about the stored backups.
func (m *Manager) Stats() (*Stats, error) {
	index, err := loadIndex(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	stats := &Stats{
		TotalBackups: len(index.Backups),
		ByKind:       make(map[Kind]int),
	}
	for _, b := range index.Backups {
		stats.TotalSize += b.Size
		stats.ByKind[b.Kind]++
		if stats.OldestBackup.IsZero() || b.CreatedAt.Before(stats.OldestBackup) {
			stats.OldestBackup = b.CreatedAt
		}
		if b.CreatedAt.After(stats.NewestBackup) {
			stats.NewestBackup = b.CreatedAt
		}
	}
	return stats, nil
}
