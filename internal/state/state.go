// Package state persists synchronisation bookkeeping and the syncable user
// preferences in a TOML file.
package state

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Status is the outcome of the last run of a sync direction.
type Status string

const (
	StatusNever   Status = "never"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// timestampKey is the per-category entry carrying the change time.
const timestampKey = "timestamp"

// SyncIn is the bookkeeping of the inbound direction.
type SyncIn struct {
	LastTime int64  `toml:"last_time"`
	Status   Status `toml:"status"`
}

// SyncOut is the bookkeeping of the outbound direction.
type SyncOut struct {
	LastTime  int64  `toml:"last_time"`
	Status    Status `toml:"status"`
	FeedCount int    `toml:"feed_count"`
}

// Category is a named group of preferences with a shared change time.
type Category struct {
	ChangeTime int64             `toml:"change_time"`
	Values     map[string]string `toml:"values"`
}

// State is the on-disk document.
type State struct {
	UserID      string              `toml:"user_id,omitempty"`
	SyncIn      SyncIn              `toml:"sync_in"`
	SyncOut     SyncOut             `toml:"sync_out"`
	Preferences map[string]Category `toml:"preferences"`
}

func defaultState() State {
	return State{
		SyncIn:      SyncIn{LastTime: -1, Status: StatusNever},
		SyncOut:     SyncOut{LastTime: -1, Status: StatusNever},
		Preferences: make(map[string]Category),
	}
}

// Store guards a State and writes it back to its file. A Store without a
// path lives in memory only.
type Store struct {
	mu    sync.Mutex
	path  string
	state State
}

// NewMemory creates a store that is never written to disk.
func NewMemory() *Store {
	return &Store{state: defaultState()}
}

// Open loads the state file at path. A missing file yields the default state.
func Open(path string) (*Store, error) {
	s := &Store{path: path, state: defaultState()}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if _, err := toml.Decode(string(data), &s.state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if s.state.Preferences == nil {
		s.state.Preferences = make(map[string]Category)
	}
	return s, nil
}

// Path returns the backing file path, empty for memory stores.
func (s *Store) Path() string { return s.path }

// Save writes the state to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s.state); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Preferences = make(map[string]Category, len(s.state.Preferences))
	for name, c := range s.state.Preferences {
		out.Preferences[name] = copyCategory(c)
	}
	return out
}

// RecordSyncIn stores the outcome of an inbound run and saves.
func (s *Store) RecordSyncIn(at int64, ok bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SyncIn = SyncIn{LastTime: at, Status: statusOf(ok)}
	return s.saveLocked()
}

// RecordSyncOut stores the outcome of an outbound run and saves.
func (s *Store) RecordSyncOut(at int64, ok bool, feedCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SyncOut = SyncOut{LastTime: at, Status: statusOf(ok), FeedCount: feedCount}
	return s.saveLocked()
}

// SetUserID remembers the service user id.
func (s *Store) SetUserID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UserID = id
}

// UserID returns the remembered service user id.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UserID
}

// Set changes a preference value and bumps the category change time.
func (s *Store) Set(category, key, value string, at int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.state.Preferences[category]
	if c.Values == nil {
		c.Values = make(map[string]string)
	}
	c.Values[key] = value
	c.ChangeTime = at
	s.state.Preferences[category] = c
}

// Get returns a preference value.
func (s *Store) Get(category, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state.Preferences[category].Values[key]
	return v, ok
}

// EncodePreferences renders every category in the service wire form:
// "<category>.<key>" entries plus "<category>.timestamp".
func (s *Store) EncodePreferences() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte)
	for name, c := range s.state.Preferences {
		for k, v := range c.Values {
			out[name+"."+k] = []byte(v)
		}
		out[name+"."+timestampKey] = []byte(strconv.FormatInt(c.ChangeTime, 10))
	}
	return out
}

// ApplyRemote loads the categories in remote whose timestamp is newer than
// the local change time, or every category when force is set. It returns the
// names of the loaded categories in sorted order.
func (s *Store) ApplyRemote(remote map[string][]byte, force bool) ([]string, error) {
	parsed, err := DecodePreferences(remote)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var loaded []string
	for name, rc := range parsed {
		lc, exists := s.state.Preferences[name]
		if !force && exists && rc.ChangeTime <= lc.ChangeTime {
			continue
		}
		s.state.Preferences[name] = rc
		loaded = append(loaded, name)
	}
	sort.Strings(loaded)
	return loaded, nil
}

// DecodePreferences parses the service wire form into categories. A
// category without a timestamp entry gets change time -1.
func DecodePreferences(remote map[string][]byte) (map[string]Category, error) {
	out := make(map[string]Category)
	for full, raw := range remote {
		name, key, err := splitKey(full)
		if err != nil {
			return nil, err
		}
		c, exists := out[name]
		if !exists {
			c = Category{ChangeTime: -1, Values: make(map[string]string)}
		}
		if key == timestampKey {
			ts, err := strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed timestamp for category %q: %w", name, err)
			}
			c.ChangeTime = ts
		} else {
			c.Values[key] = string(raw)
		}
		out[name] = c
	}
	return out, nil
}

// SplitKey splits "<category>.<key>" for a preference the user may set.
// The category timestamp is managed by the store and cannot be set.
func SplitKey(full string) (category, key string, err error) {
	category, key, err = splitKey(full)
	if err != nil {
		return "", "", err
	}
	if key == timestampKey {
		return "", "", fmt.Errorf("%q is maintained automatically", full)
	}
	return category, key, nil
}

func splitKey(full string) (string, string, error) {
	name, key, ok := strings.Cut(full, ".")
	if !ok || name == "" || key == "" {
		return "", "", fmt.Errorf("malformed preference key %q", full)
	}
	return name, key, nil
}

// FormatBool renders a boolean preference value.
func FormatBool(b bool) string { return strconv.FormatBool(b) }

// FormatInt renders a numeric preference value.
func FormatInt(n int64) string { return strconv.FormatInt(n, 10) }

func statusOf(ok bool) Status {
	if ok {
		return StatusSuccess
	}
	return StatusFailure
}

func copyCategory(c Category) Category {
	out := Category{ChangeTime: c.ChangeTime, Values: make(map[string]string, len(c.Values))}
	for k, v := range c.Values {
		out.Values[k] = v
	}
	return out
}
