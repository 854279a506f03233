// Package match decides feed identity across the local and remote sides of a
// synchronisation.
package match

import (
	"strings"

	"github.com/klauern/feedsync/internal/model"
)

// AreSame reports whether candidate represents the same feed as pattern.
// During synchronisation the pattern is the remote feed and the candidate
// is the local one. Feeds of different variants never match.
func AreSame(pattern, candidate model.Feed) bool {
	if pattern == nil || candidate == nil {
		return false
	}
	switch p := pattern.(type) {
	case *model.DirectFeed:
		c, ok := candidate.(*model.DirectFeed)
		if !ok || p == nil || c == nil {
			return false
		}
		if p.XMLURL == "" || c.XMLURL == "" {
			return false
		}
		if c.SyncHash != 0 && p.ComputeSyncHash() == c.SyncHash {
			return true
		}
		return strings.EqualFold(p.XMLURL, c.XMLURL)
	case *model.QueryFeed:
		c, ok := candidate.(*model.QueryFeed)
		if !ok || p == nil || c == nil {
			return false
		}
		return p.QueryType == c.QueryType && p.Parameter == c.Parameter
	case *model.SearchFeed:
		c, ok := candidate.(*model.SearchFeed)
		if !ok || p == nil || c == nil {
			return false
		}
		return p.Query == c.Query
	default:
		return false
	}
}

// Key returns the tombstone match key of f.
func Key(f model.Feed) string {
	switch v := f.(type) {
	case *model.DirectFeed:
		return "direct:" + strings.ToLower(strings.TrimSpace(v.XMLURL))
	case *model.QueryFeed:
		return "query:" + string(v.QueryType) + ":" + v.Parameter
	case *model.SearchFeed:
		return "search:" + v.Query
	default:
		return ""
	}
}

// ReadingListKey returns the tombstone match key of a reading list, which
// is its URL.
func ReadingListKey(rl *model.ReadingList) string {
	return rl.URL
}

// Find returns the first candidate that matches pattern.
func Find[F model.Feed](pattern model.Feed, candidates []F) (F, bool) {
	for _, c := range candidates {
		if AreSame(pattern, c) {
			return c, true
		}
	}
	var zero F
	return zero, false
}

// FindInHierarchy returns the first feed anywhere in h that matches pattern.
func FindInHierarchy(pattern model.Feed, h *model.Hierarchy) model.Feed {
	f, ok := Find(pattern, h.Feeds())
	if !ok {
		return nil
	}
	return f
}

// FindDirect returns the first direct feed in h that matches pattern.
func FindDirect(pattern *model.DirectFeed, h *model.Hierarchy) *model.DirectFeed {
	f, ok := Find[*model.DirectFeed](pattern, h.DirectFeeds())
	if !ok {
		return nil
	}
	return f
}
