package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/klauern/feedsync/internal/model"
)

func testHierarchy() *model.Hierarchy {
	tech := model.NewGuide("Tech")
	a := model.NewDirectFeed("http://a/feed", "Alpha")
	a.ReadKeys = []string{"r1"}
	tech.Link(a, model.Never)
	tech.Link(model.NewQueryFeed("Unread", model.QueryUnread, ""), model.Never)
	rl := model.NewReadingList("http://lists/one", "One")
	rl.Add(a)
	tech.AddReadingList(rl)

	news := model.NewGuide("News")
	news.Link(model.NewDirectFeed("http://z/feed", ""), model.Never)
	news.Link(model.NewSearchFeed("Go", "golang"), model.Never)
	return model.NewHierarchy(tech, news)
}

func TestFormat_IsValid(t *testing.T) {
	tests := map[string]struct {
		format Format
		want   bool
	}{
		"json":     {FormatJSON, true},
		"yaml":     {FormatYAML, true},
		"text":     {FormatText, true},
		"markdown": {Format("markdown"), false},
		"empty":    {Format(""), false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.format.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	got, err := ParseFormat(" YAML ")
	if err != nil || got != FormatYAML {
		t.Errorf("ParseFormat() = %v, %v", got, err)
	}
	if _, err := ParseFormat("opml"); err == nil {
		t.Error("ParseFormat(opml) should fail")
	}
	if len(AllFormats()) != 3 {
		t.Errorf("AllFormats() = %v", AllFormats())
	}
}

func TestExportText(t *testing.T) {
	var buf bytes.Buffer
	if err := New(Options{Format: FormatText}).Export(testHierarchy(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	want := strings.Join([]string{
		"Tech",
		"  ├─ Alpha <http://a/feed>",
		"  ├─ [unread] Unread",
		"  └─ reading list: One <http://lists/one> (1 feed)",
		"News",
		"  ├─ <http://z/feed>",
		"  └─ [search: golang] Go",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("text export mismatch\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestExportTextTruncates(t *testing.T) {
	var buf bytes.Buffer
	if err := New(Options{Format: FormatText, Width: 10, Guide: "Tech"}).Export(testHierarchy(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if w := len([]rune(line)); w > 10 {
			t.Errorf("line %q has %d cells, want <= 10", line, w)
		}
	}
}

func TestExportJSONFiltersGuideAndKeys(t *testing.T) {
	var buf bytes.Buffer
	if err := New(Options{Format: FormatJSON, Guide: "Tech"}).Export(testHierarchy(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var doc model.Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(doc.Guides) != 1 || doc.Guides[0].Title != "Tech" {
		t.Fatalf("guides = %+v, want only Tech", doc.Guides)
	}
	if len(doc.Feeds) != 2 {
		t.Errorf("feeds = %d, want 2", len(doc.Feeds))
	}
	for _, f := range doc.Feeds {
		if len(f.ReadKeys) != 0 {
			t.Errorf("read keys exported without IncludeKeys: %v", f.ReadKeys)
		}
	}
}

func TestExportYAMLRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := New(Options{Format: FormatYAML, IncludeKeys: true}).Export(testHierarchy(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var doc model.Document
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	h, err := model.Import(&doc)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if got := len(h.Feeds()); got != 4 {
		t.Errorf("feeds = %d, want 4", got)
	}
}
