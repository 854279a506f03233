// Package tombstone records feeds and reading lists the user removed locally,
// so an inbound synchronisation does not resurrect them.
package tombstone

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Entry is a single deletion record.
type Entry struct {
	GuideTitle string
	Key        string
	DeletedAt  time.Time
}

// Repository stores deletion records keyed by guide title and match key.
// Both the SQLite and the in-memory implementations satisfy it.
type Repository interface {
	// WasDeleted reports whether key was removed from the guide.
	WasDeleted(ctx context.Context, guideTitle, key string) (bool, error)
	// Record marks key as removed from the guide. Recording twice keeps the
	// latest deletion time.
	Record(ctx context.Context, guideTitle, key string) error
	// Purge drops every record. It runs after a successful outbound push,
	// once the deletions are reflected upstream.
	Purge(ctx context.Context) error
	// List returns all records ordered by guide title then key.
	List(ctx context.Context) ([]Entry, error)
}

type entryKey struct {
	guide string
	key   string
}

// Memory is an in-memory Repository.
type Memory struct {
	mu      sync.RWMutex
	entries map[entryKey]time.Time
	now     func() time.Time
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{entries: make(map[entryKey]time.Time), now: time.Now}
}

// WasDeleted implements Repository.
func (m *Memory) WasDeleted(_ context.Context, guideTitle, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[entryKey{guideTitle, key}]
	return ok, nil
}

// Record implements Repository.
func (m *Memory) Record(_ context.Context, guideTitle, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entryKey{guideTitle, key}] = m.now()
	return nil
}

// Purge implements Repository.
func (m *Memory) Purge(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[entryKey]time.Time)
	return nil
}

// List implements Repository.
func (m *Memory) List(context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.entries))
	for k, t := range m.entries {
		out = append(out, Entry{GuideTitle: k.guide, Key: k.key, DeletedAt: t})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GuideTitle != out[j].GuideTitle {
			return out[i].GuideTitle < out[j].GuideTitle
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}
