package e2e_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauern/feedsync/internal/e2e"
	"github.com/klauern/feedsync/internal/model"
)

const (
	email    = "reader@example.com"
	password = "secret"
)

func sampleGuides() *model.Hierarchy {
	tech := model.NewGuide("Tech")
	tech.Link(model.NewDirectFeed("http://example.com/a.xml", "Alpha"), model.Never)
	tech.Link(model.NewSearchFeed("Go news", "golang"), model.Never)
	news := model.NewGuide("News")
	news.Link(model.NewDirectFeed("http://example.com/b.xml", "Beta"), model.Never)
	return model.NewHierarchy(tech, news)
}

// device returns a harness connected to svc that already holds guides.
func device(t *testing.T, svc *e2e.Service, guides *model.Hierarchy) *e2e.Harness {
	t.Helper()
	h := e2e.NewHarness(t)
	h.Connect(svc, email, password)
	if guides != nil {
		h.WriteGuides(guides)
	}
	return h
}

func TestVersionCommand(t *testing.T) {
	h := e2e.NewHarness(t)

	result := h.Run("version")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "feedsync version")
}

// TestHelpFlag verifies --help works for main command.
func TestHelpFlag(t *testing.T) {
	h := e2e.NewHarness(t)

	result := h.Run("--help")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "feedsync")
	e2e.AssertOutputContains(t, result, "COMMANDS")
}

// TestSubcommandHelp verifies --help works for subcommands.
func TestSubcommandHelp(t *testing.T) {
	subcommands := []string{"sync", "diff", "status", "guides", "export", "tombstones", "backup", "config", "serve"}

	for _, cmd := range subcommands {
		t.Run(cmd, func(t *testing.T) {
			h := e2e.NewHarness(t)

			result := h.Run(cmd, "--help")

			e2e.AssertSuccess(t, result)
			e2e.AssertOutputContains(t, result, "USAGE")
		})
	}
}

func TestSyncHelpListsFlags(t *testing.T) {
	h := e2e.NewHarness(t)

	result := h.Run("sync", "--help")

	e2e.AssertSuccess(t, result)
	for _, flag := range []string{"--restore", "--yes", "--no-feeds", "--no-prefs", "--no-ping", "--metrics-file"} {
		e2e.AssertOutputContains(t, result, flag)
	}
	for _, sub := range []string{"in", "out", "full"} {
		e2e.AssertOutputContains(t, result, sub)
	}
}

func TestConfigShowMasksPassword(t *testing.T) {
	svc := e2e.StartService(t)
	h := device(t, svc, nil)

	result := h.Run("config", "show")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, email)
	e2e.AssertOutputContains(t, result, "********")
	e2e.AssertOutputNotContains(t, result, password)
}

func TestConfigInitCreatesConfigFile(t *testing.T) {
	h := e2e.NewHarness(t)

	result := h.Run("config", "init", "--email", email)
	e2e.AssertSuccess(t, result)
	e2e.AssertFileContains(t, filepath.Join(h.HomeDir(), "config.yaml"), email)

	result = h.Run("config", "init")
	e2e.AssertError(t, result)

	result = h.Run("config", "init", "--force")
	e2e.AssertSuccess(t, result)
}

func TestSyncWithoutAccountFails(t *testing.T) {
	h := e2e.NewHarness(t)
	h.WriteGuides(sampleGuides())

	result := h.Run("sync", "out")

	e2e.AssertError(t, result)
	e2e.AssertErrorContains(t, result, "Sync Out failed")
}

// TestTwoDevicesShareGuides pushes guides from one device and pulls them
// into another through the service.
func TestTwoDevicesShareGuides(t *testing.T) {
	svc := e2e.StartService(t)
	laptop := device(t, svc, sampleGuides())
	desktop := device(t, svc, nil)

	result := laptop.Run("sync", "out")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "Sync Out completed: 3 feeds saved")

	result = desktop.Run("sync", "in", "--yes")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "2 guides created")
	e2e.AssertOutputContains(t, result, "3 feeds added")

	got := desktop.LoadGuides()
	if len(got.Guides()) != 2 {
		t.Fatalf("desktop has %d guides, want 2", len(got.Guides()))
	}
	e2e.AssertGuideHasFeed(t, got, "Tech", "Alpha")
	e2e.AssertGuideHasFeed(t, got, "Tech", "Go news")

	result = desktop.Run("status")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "2 guide(s), 3 feed(s)")
	e2e.AssertOutputContains(t, result, "success")

	// A second pull finds nothing new.
	result = desktop.Run("sync", "in", "--yes")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputNotContains(t, result, "feeds added")
}

func TestWrongPasswordIsRejected(t *testing.T) {
	svc := e2e.StartService(t)
	laptop := device(t, svc, sampleGuides())
	e2e.AssertSuccess(t, laptop.Run("sync", "out"))

	intruder := e2e.NewHarness(t)
	intruder.Connect(svc, email, "guess")

	result := intruder.Run("sync", "in", "--yes")

	e2e.AssertError(t, result)
	e2e.AssertErrorContains(t, result, "Sync In failed")
	if n := len(intruder.LoadGuides().Guides()); n != 0 {
		t.Errorf("intruder got %d guides", n)
	}
}

// TestRemovedFeedStaysRemoved checks that a local deletion survives a
// merge and that restore mode brings the feed back.
func TestRemovedFeedStaysRemoved(t *testing.T) {
	svc := e2e.StartService(t)
	laptop := device(t, svc, sampleGuides())
	desktop := device(t, svc, nil)

	e2e.AssertSuccess(t, laptop.Run("sync", "out"))
	e2e.AssertSuccess(t, desktop.Run("sync", "in", "--yes"))

	result := desktop.Run("guides", "remove", "Tech", "--feed", "http://example.com/a.xml")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "Removed Alpha from Tech")

	result = desktop.Run("tombstones")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "Tech")

	result = desktop.Run("sync", "in", "--yes")
	e2e.AssertSuccess(t, result)
	e2e.AssertGuideLacksFeed(t, desktop.LoadGuides(), "Tech", "Alpha")

	result = desktop.Run("diff", "--restore")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "+ Tech / Alpha")

	result = desktop.Run("sync", "in", "--restore", "--yes")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "1 feed added")
	e2e.AssertGuideHasFeed(t, desktop.LoadGuides(), "Tech", "Alpha")
}

func TestSyncOutPurgesTombstones(t *testing.T) {
	svc := e2e.StartService(t)
	laptop := device(t, svc, sampleGuides())

	e2e.AssertSuccess(t, laptop.Run("guides", "remove", "News"))
	result := laptop.Run("tombstones", "list")
	e2e.AssertOutputNotContains(t, result, "No deletion records")

	e2e.AssertSuccess(t, laptop.Run("sync", "out"))

	result = laptop.Run("tombstones", "list")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "No deletion records")
}

// TestFullSyncMergesBothDevices runs a full sync on a device with its own
// guide, then pulls the merged result on the other device.
func TestFullSyncMergesBothDevices(t *testing.T) {
	svc := e2e.StartService(t)
	laptop := device(t, svc, sampleGuides())

	extra := model.NewGuide("Extra")
	extra.Link(model.NewDirectFeed("http://example.com/c.xml", "Gamma"), model.Never)
	desktop := device(t, svc, model.NewHierarchy(extra))

	e2e.AssertSuccess(t, laptop.Run("sync", "out"))

	result := desktop.Run("sync", "--yes")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, "Sync In completed")
	e2e.AssertOutputContains(t, result, "Sync Out completed")

	result = laptop.Run("sync", "in", "--yes")
	e2e.AssertSuccess(t, result)
	e2e.AssertGuideHasFeed(t, laptop.LoadGuides(), "Extra", "Gamma")
}

func TestInteractiveSelection(t *testing.T) {
	svc := e2e.StartService(t)
	laptop := device(t, svc, sampleGuides())
	desktop := device(t, svc, nil)
	e2e.AssertSuccess(t, laptop.Run("sync", "out"))

	tests := map[string]struct {
		stdin     string
		wantFeeds int
		wantOut   string
	}{
		"decline": {stdin: "n\n", wantFeeds: 0, wantOut: "additions cancelled"},
		"pick one": {stdin: "s\n1\n", wantFeeds: 1, wantOut: "1 feed added"},
	}
	for _, name := range []string{"decline", "pick one"} {
		tt := tests[name]
		t.Run(name, func(t *testing.T) {
			result := desktop.RunWithStdin(tt.stdin, "sync", "in")

			e2e.AssertSuccess(t, result)
			e2e.AssertOutputContains(t, result, "Add 3 item(s)?")
			e2e.AssertOutputContains(t, result, tt.wantOut)
			if n := len(desktop.LoadGuides().Feeds()); n != tt.wantFeeds {
				t.Errorf("desktop has %d feeds, want %d", n, tt.wantFeeds)
			}
		})
	}
}

func TestSyncBacksUpGuidesFile(t *testing.T) {
	svc := e2e.StartService(t)
	laptop := device(t, svc, sampleGuides())
	extra := model.NewGuide("Extra")
	extra.Link(model.NewDirectFeed("http://example.com/c.xml", "Gamma"), model.Never)
	desktop := device(t, svc, model.NewHierarchy(extra))

	e2e.AssertSuccess(t, laptop.Run("sync", "out"))
	e2e.AssertSuccess(t, desktop.Run("sync", "in", "--yes"))

	result := desktop.Run("backup", "list", "--kind", "guides")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputNotContains(t, result, "No backups found")
	e2e.AssertOutputContains(t, result, "guides")

	result = desktop.Run("backup", "list", "--format", "json")
	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, `"kind"`)
}

func TestExportFormats(t *testing.T) {
	h := e2e.NewHarness(t)
	h.WriteGuides(sampleGuides())

	tests := map[string]struct {
		args []string
		want string
	}{
		"text":  {args: []string{"export"}, want: "Tech"},
		"json":  {args: []string{"export", "--format", "json"}, want: `"Alpha"`},
		"yaml":  {args: []string{"export", "-f", "yaml"}, want: "Beta"},
		"guide": {args: []string{"export", "--guide", "News"}, want: "Beta"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			result := h.Run(tt.args...)
			e2e.AssertSuccess(t, result)
			e2e.AssertOutputContains(t, result, tt.want)
		})
	}

	out := filepath.Join(t.TempDir(), "guides.json")
	e2e.AssertSuccess(t, h.Run("export", "--format", "json", "--output", out))
	e2e.AssertFileContains(t, out, "example.com/b.xml")

	e2e.AssertError(t, h.Run("export", "--format", "opml"))
}

func TestConfigFileSetsExportFormat(t *testing.T) {
	h := e2e.NewHarness(t)
	h.WriteGuides(sampleGuides())
	h.WriteConfig("output:\n  format: json\n")

	result := h.Run("export")

	e2e.AssertSuccess(t, result)
	e2e.AssertOutputContains(t, result, `"guides"`)
	e2e.AssertOutputContains(t, result, "http://example.com/a.xml")
}

// TestCopyServiceLayoutIgnoresRemovals checks that a device configured to
// mirror the service gets removed feeds back on every pull.
func TestCopyServiceLayoutIgnoresRemovals(t *testing.T) {
	svc := e2e.StartService(t)
	laptop := device(t, svc, sampleGuides())
	desktop := device(t, svc, nil)

	e2e.AssertSuccess(t, laptop.Run("sync", "out"))
	e2e.AssertSuccess(t, desktop.Run("sync", "in", "--yes"))
	e2e.AssertSuccess(t, desktop.Run("guides", "remove", "News"))

	desktop.WriteConfig("sync:\n  copy_service_layout: true\n")
	result := desktop.Run("sync", "in", "--yes")

	e2e.AssertSuccess(t, result)
	e2e.AssertGuideHasFeed(t, desktop.LoadGuides(), "News", "Beta")

	saved := desktop.HomeFixture().ReadFile("guides.yaml")
	if !strings.Contains(saved, "http://example.com/b.xml") {
		t.Errorf("guides file should hold the restored feed:\n%s", saved)
	}
}
