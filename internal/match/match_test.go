package match

import (
	"testing"

	"github.com/klauern/feedsync/internal/model"
)

func direct(url string, hash uint64) *model.DirectFeed {
	f := model.NewDirectFeed(url, "")
	f.SyncHash = hash
	return f
}

func TestAreSame(t *testing.T) {
	old := model.NewDirectFeed("http://a/feed", "")

	tests := []struct {
		name      string
		pattern   model.Feed
		candidate model.Feed
		want      bool
	}{
		{
			name:      "same url",
			pattern:   direct("http://a/feed", 0),
			candidate: direct("http://a/feed", 0),
			want:      true,
		},
		{
			name:      "url case ignored",
			pattern:   direct("HTTP://A/FEED", 0),
			candidate: direct("http://a/feed", 0),
			want:      true,
		},
		{
			name:      "different url no hash",
			pattern:   direct("http://a/feed", 0),
			candidate: direct("http://b/feed", 0),
			want:      false,
		},
		{
			name:      "hash match survives local rename",
			pattern:   direct("http://a/feed", 0),
			candidate: direct("http://moved/feed", old.ComputeSyncHash()),
			want:      true,
		},
		{
			name:      "stale hash does not match",
			pattern:   direct("http://c/feed", 0),
			candidate: direct("http://moved/feed", old.ComputeSyncHash()),
			want:      false,
		},
		{
			name:      "empty pattern url",
			pattern:   direct("", 0),
			candidate: direct("", 0),
			want:      false,
		},
		{
			name:      "empty candidate url with matching hash",
			pattern:   direct("http://a/feed", 0),
			candidate: direct("", old.ComputeSyncHash()),
			want:      false,
		},
		{
			name:      "query same",
			pattern:   model.NewQueryFeed("x", model.QueryKeywords, "go"),
			candidate: model.NewQueryFeed("y", model.QueryKeywords, "go"),
			want:      true,
		},
		{
			name:      "query different parameter",
			pattern:   model.NewQueryFeed("x", model.QueryKeywords, "go"),
			candidate: model.NewQueryFeed("x", model.QueryKeywords, "rust"),
			want:      false,
		},
		{
			name:      "query different type",
			pattern:   model.NewQueryFeed("x", model.QueryPinned, ""),
			candidate: model.NewQueryFeed("x", model.QueryUnread, ""),
			want:      false,
		},
		{
			name:      "search same",
			pattern:   model.NewSearchFeed("a", "golang"),
			candidate: model.NewSearchFeed("b", "golang"),
			want:      true,
		},
		{
			name:      "search different",
			pattern:   model.NewSearchFeed("a", "golang"),
			candidate: model.NewSearchFeed("a", "Golang"),
			want:      false,
		},
		{
			name:      "different variants",
			pattern:   model.NewSearchFeed("a", "golang"),
			candidate: model.NewQueryFeed("a", model.QueryKeywords, "golang"),
			want:      false,
		},
		{
			name:      "nil candidate",
			pattern:   direct("http://a/feed", 0),
			candidate: nil,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				if got := AreSame(tt.pattern, tt.candidate); got != tt.want {
					t.Fatalf("AreSame() = %v, want %v (call %d)", got, tt.want, i+1)
				}
			}
		})
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		feed model.Feed
		want string
	}{
		{name: "direct lower-cased", feed: direct(" HTTP://A/Feed ", 0), want: "direct:http://a/feed"},
		{name: "query", feed: model.NewQueryFeed("", model.QueryTagged, "go"), want: "query:tagged:go"},
		{name: "search", feed: model.NewSearchFeed("", "golang"), want: "search:golang"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.feed); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindInHierarchy(t *testing.T) {
	g := model.NewGuide("Tech")
	a := direct("http://a/feed", 0)
	q := model.NewQueryFeed("Pinned", model.QueryPinned, "")
	g.Link(a, model.Never)
	g.Link(q, model.Never)
	h := model.NewHierarchy(g)

	if got := FindInHierarchy(direct("http://A/feed", 0), h); got != a {
		t.Errorf("FindInHierarchy() = %v, want direct feed", got)
	}
	if got := FindInHierarchy(model.NewQueryFeed("", model.QueryPinned, ""), h); got != q {
		t.Errorf("FindInHierarchy() = %v, want query feed", got)
	}
	if got := FindDirect(direct("http://zzz/feed", 0), h); got != nil {
		t.Errorf("FindDirect() = %v, want nil", got)
	}
}
