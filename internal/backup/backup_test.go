package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauern/feedsync/internal/util"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	home := util.CreateTempDir(t)
	m := NewManager(filepath.Join(home, "backups"))
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return m, home
}

func TestCreateAndRestore(t *testing.T) {
	m, home := newTestManager(t)
	source := filepath.Join(home, "guides.yaml")
	util.WriteFile(t, source, "version: 1\n")

	meta, err := m.Create(source, Options{Description: "before sync-in", Guides: 2, Feeds: 5})
	util.AssertNoError(t, err)
	util.AssertEqual(t, meta.Kind, KindHierarchy)
	util.AssertEqual(t, meta.Guides, 2)
	util.AssertEqual(t, len(meta.Hash), 64)

	util.WriteFile(t, source, "version: 1\nguides: []\n")

	restored, err := m.Restore(meta.ID, "")
	util.AssertNoError(t, err)
	util.AssertEqual(t, restored.ID, meta.ID)

	data, err := os.ReadFile(source)
	util.AssertNoError(t, err)
	util.AssertEqual(t, string(data), "version: 1\n")
}

func TestCreateSkipsUnchangedSource(t *testing.T) {
	m, home := newTestManager(t)
	source := filepath.Join(home, "guides.yaml")
	util.WriteFile(t, source, "a")

	first, err := m.Create(source, Options{})
	util.AssertNoError(t, err)
	second, err := m.Create(source, Options{})
	util.AssertNoError(t, err)
	util.AssertEqual(t, second.ID, first.ID)

	util.WriteFile(t, source, "b")
	third, err := m.Create(source, Options{})
	util.AssertNoError(t, err)
	if third.ID == first.ID {
		t.Error("changed source should produce a new backup")
	}

	list, err := m.List("")
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(list), 2)
	util.AssertEqual(t, list[0].ID, third.ID)
}

func TestListByKind(t *testing.T) {
	m, home := newTestManager(t)
	guides := filepath.Join(home, "guides.yaml")
	state := filepath.Join(home, "state.toml")
	util.WriteFile(t, guides, "g")
	util.WriteFile(t, state, "s")

	_, err := m.Create(guides, Options{Kind: KindHierarchy})
	util.AssertNoError(t, err)
	_, err = m.Create(state, Options{Kind: KindState})
	util.AssertNoError(t, err)

	list, err := m.List(KindState)
	util.AssertNoError(t, err)
	util.AssertEqual(t, len(list), 1)
	util.AssertEqual(t, list[0].SourcePath, state)
}

func TestVerifyDetectsCorruption(t *testing.T) {
	m, home := newTestManager(t)
	source := filepath.Join(home, "guides.yaml")
	util.WriteFile(t, source, "original")

	meta, err := m.Create(source, Options{})
	util.AssertNoError(t, err)
	util.AssertNoError(t, m.Verify(meta.ID))

	util.WriteFile(t, meta.BackupPath, "tampered")
	if err := m.Verify(meta.ID); !errors.Is(err, ErrCorrupted) {
		t.Errorf("Verify() error = %v, want ErrCorrupted", err)
	}
	if _, err := m.Restore(meta.ID, filepath.Join(home, "out.yaml")); !errors.Is(err, ErrCorrupted) {
		t.Errorf("Restore() error = %v, want ErrCorrupted", err)
	}
}

func TestUnknownBackup(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.Delete("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := m.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestCleanup(t *testing.T) {
	tests := []struct {
		name        string
		opts        CleanupOptions
		wantDeleted int
		wantLeft    int
	}{
		{
			name:        "max backups",
			opts:        CleanupOptions{MaxBackups: 2},
			wantDeleted: 2,
			wantLeft:    2,
		},
		{
			name:        "dry run",
			opts:        CleanupOptions{MaxBackups: 1, DryRun: true},
			wantDeleted: 3,
			wantLeft:    4,
		},
		{
			name:        "max age keeps newest",
			opts:        CleanupOptions{MaxAge: time.Nanosecond, KeepAtLeastOne: true},
			wantDeleted: 3,
			wantLeft:    1,
		},
		{
			name:     "unlimited",
			opts:     CleanupOptions{},
			wantLeft: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, home := newTestManager(t)
			source := filepath.Join(home, "guides.yaml")
			for _, content := range []string{"1", "2", "3", "4"} {
				util.WriteFile(t, source, content)
				_, err := m.Create(source, Options{})
				util.AssertNoError(t, err)
			}

			deleted, err := m.Cleanup(tt.opts)
			util.AssertNoError(t, err)
			util.AssertEqual(t, len(deleted), tt.wantDeleted)

			left, err := m.List("")
			util.AssertNoError(t, err)
			util.AssertEqual(t, len(left), tt.wantLeft)
		})
	}
}

func TestStats(t *testing.T) {
	m, home := newTestManager(t)
	source := filepath.Join(home, "guides.yaml")
	util.WriteFile(t, source, "12345")
	_, err := m.Create(source, Options{})
	util.AssertNoError(t, err)

	stats, err := m.Stats()
	util.AssertNoError(t, err)
	util.AssertEqual(t, stats.TotalBackups, 1)
	util.AssertEqual(t, stats.TotalSize, int64(5))
	util.AssertEqual(t, stats.ByKind[KindHierarchy], 1)
}
