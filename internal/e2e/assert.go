package e2e

import (
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/klauern/feedsync/internal/model"
)

// AssertSuccess fails the test if the command did not succeed.
func AssertSuccess(t *testing.T, r *Result) {
	t.Helper()
	if !r.Success() {
		t.Fatalf("expected success, got error: %v\nstdout: %s", r.Err, r.Stdout)
	}
}

// AssertError fails the test if the command did not return an error.
func AssertError(t *testing.T, r *Result) {
	t.Helper()
	if r.Success() {
		t.Fatalf("expected error, but command succeeded\nstdout: %s", r.Stdout)
	}
}

// AssertErrorContains fails the test unless the command failed with an
// error mentioning substr.
func AssertErrorContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	AssertError(t, r)
	if !strings.Contains(r.Err.Error(), substr) {
		t.Errorf("expected error to contain %q\ngot: %s", substr, r.Err)
	}
}

// AssertOutputContains fails the test if stdout doesn't contain the substring.
func AssertOutputContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	if !strings.Contains(r.Stdout, substr) {
		t.Errorf("expected output to contain %q\ngot: %s", substr, r.Stdout)
	}
}

// AssertOutputNotContains fails the test if stdout contains the substring.
func AssertOutputNotContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	if strings.Contains(r.Stdout, substr) {
		t.Errorf("expected output to NOT contain %q\ngot: %s", substr, r.Stdout)
	}
}

// AssertFileContains fails the test if the file doesn't contain the substring.
func AssertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	// #nosec G304 - path is provided by test code
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("expected file %s to contain %q\ngot: %s", path, substr, string(data))
	}
}

// FeedTitles lists the display titles of the feeds in guide, or nil when
// the guide does not exist.
func FeedTitles(h *model.Hierarchy, guide string) []string {
	g := h.FindGuide(guide)
	if g == nil {
		return nil
	}
	var titles []string
	for _, f := range g.AllFeeds() {
		titles = append(titles, model.DisplayTitle(f))
	}
	return titles
}

// AssertGuideHasFeed fails the test unless guide holds a feed titled title.
func AssertGuideHasFeed(t *testing.T, h *model.Hierarchy, guide, title string) {
	t.Helper()
	if titles := FeedTitles(h, guide); !slices.Contains(titles, title) {
		t.Errorf("expected guide %q to hold %q, got %v", guide, title, titles)
	}
}

// AssertGuideLacksFeed fails the test if guide holds a feed titled title.
func AssertGuideLacksFeed(t *testing.T, h *model.Hierarchy, guide, title string) {
	t.Helper()
	if titles := FeedTitles(h, guide); slices.Contains(titles, title) {
		t.Errorf("expected guide %q not to hold %q, got %v", guide, title, titles)
	}
}
