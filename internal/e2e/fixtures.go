package e2e

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/store"
)

// Fixture provides helpers for creating test fixtures in E2E tests.
type Fixture struct {
	t       *testing.T
	baseDir string
}

// NewFixture creates a new fixture helper rooted at the given directory.
func NewFixture(t *testing.T, baseDir string) *Fixture {
	t.Helper()
	return &Fixture{
		t:       t,
		baseDir: baseDir,
	}
}

// WriteFile writes content to a file relative to the fixture base directory.
// It creates parent directories as needed.
func (f *Fixture) WriteFile(relPath, content string) string {
	f.t.Helper()
	fullPath := f.Path(relPath)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		f.t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, []byte(content), 0o600); err != nil {
		f.t.Fatalf("failed to write file %s: %v", fullPath, err)
	}

	return fullPath
}

// Path returns the full path for a relative path.
func (f *Fixture) Path(relPath string) string {
	return filepath.Join(f.baseDir, relPath)
}

// ReadFile reads and returns the content of a file.
func (f *Fixture) ReadFile(relPath string) string {
	f.t.Helper()
	fullPath := f.Path(relPath)

	// #nosec G304 - fullPath is constructed from trusted test fixture base and test-provided path
	data, err := os.ReadFile(fullPath)
	if err != nil {
		f.t.Fatalf("failed to read file %s: %v", fullPath, err)
	}

	return string(data)
}

// HomeFixture returns a fixture rooted at the harness home directory.
func (h *Harness) HomeFixture() *Fixture {
	h.t.Helper()
	return NewFixture(h.t, h.homeDir)
}

// WriteConfig writes config.yaml into the harness home.
func (h *Harness) WriteConfig(content string) string {
	h.t.Helper()
	return h.HomeFixture().WriteFile("config.yaml", content)
}

// GuidesPath returns where this device keeps its guides file.
func (h *Harness) GuidesPath() string {
	return filepath.Join(h.homeDir, "guides.yaml")
}

// WriteGuides stores hierarchy as this device's local guides.
func (h *Harness) WriteGuides(hierarchy *model.Hierarchy) {
	h.t.Helper()
	if err := hierarchy.Update(store.New(h.GuidesPath()).Save); err != nil {
		h.t.Fatalf("failed to write guides: %v", err)
	}
}

// LoadGuides reads this device's local guides.
func (h *Harness) LoadGuides() *model.Hierarchy {
	h.t.Helper()
	hierarchy, err := store.New(h.GuidesPath()).Load()
	if err != nil {
		h.t.Fatalf("failed to load guides: %v", err)
	}
	return hierarchy
}
