// Package model defines the guide/feed hierarchy that feedsync reconciles.
//
// A Hierarchy holds guides. Guides link feeds directly and own reading lists,
// which in turn reference direct feeds without owning them. Feed is a closed
// sum type: only *DirectFeed, *QueryFeed and *SearchFeed implement it.
package model

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Never marks a timestamp that has not happened yet (never synced out,
// never updated).
const Never int64 = -1

// NoRating marks a feed or guide that carries no user rating.
const NoRating = -1

// FeedType classifies the content a feed carries.
type FeedType string

const (
	// FeedTypeText is a regular article feed.
	FeedTypeText FeedType = "text"
	// FeedTypeImage is a feed whose articles are mostly images.
	FeedTypeImage FeedType = "image"
	// FeedTypePodcast is a feed whose articles carry enclosures.
	FeedTypePodcast FeedType = "podcast"
)

// IsValid returns true if the feed type is recognized.
func (t FeedType) IsValid() bool {
	switch t {
	case FeedTypeText, FeedTypeImage, FeedTypePodcast:
		return true
	default:
		return false
	}
}

// Feed is implemented by *DirectFeed, *QueryFeed and *SearchFeed only.
type Feed interface {
	// Base returns the fields every feed variant shares.
	Base() *FeedBase
	// Kind names the variant ("direct", "query", "search").
	Kind() string

	isFeed()
}

// FeedBase holds the fields shared by all feed variants.
type FeedBase struct {
	ID              string
	Title           string
	Rating          int
	ViewMode        int
	ViewModeEnabled bool
	Type            FeedType
	LastUpdateTime  int64

	guides []*Guide
}

func newFeedBase(title string) FeedBase {
	return FeedBase{
		ID:             uuid.NewString(),
		Title:          title,
		Rating:         NoRating,
		Type:           FeedTypeText,
		LastUpdateTime: Never,
	}
}

// Base implements Feed.
func (b *FeedBase) Base() *FeedBase { return b }

// Guides returns the guides that link this feed directly.
func (b *FeedBase) Guides() []*Guide {
	out := make([]*Guide, len(b.guides))
	copy(out, b.guides)
	return out
}

func (b *FeedBase) addGuide(g *Guide) {
	for _, existing := range b.guides {
		if existing == g {
			return
		}
	}
	b.guides = append(b.guides, g)
}

func (b *FeedBase) removeGuide(g *Guide) {
	for i, existing := range b.guides {
		if existing == g {
			b.guides = append(b.guides[:i], b.guides[i+1:]...)
			return
		}
	}
}

// transferBase copies the mutable shared properties. Identity (ID) and
// membership are left alone.
func (b *FeedBase) transferBase(src *FeedBase) {
	b.Title = src.Title
	b.Rating = src.Rating
	b.ViewMode = src.ViewMode
	b.ViewModeEnabled = src.ViewModeEnabled
	b.Type = src.Type
	b.LastUpdateTime = src.LastUpdateTime
}

// DirectFeed is a feed subscribed through an explicit XML URL. It is the only
// variant that carries article state (read and pinned keys) and the only one
// that can be a member of reading lists.
type DirectFeed struct {
	FeedBase

	XMLURL          string
	SyncHash        uint64
	UserTitle       string
	UserAuthor      string
	UserDescription string
	Disabled        bool
	PurgeLimit      int
	Tags            []string
	ReadKeys        []string
	PinnedKeys      []string
	UpdatePeriod    int64
	LastPollTime    int64

	readingLists []*ReadingList
}

// NewDirectFeed creates a direct feed with a fresh identifier.
func NewDirectFeed(xmlURL, title string) *DirectFeed {
	return &DirectFeed{
		FeedBase:     newFeedBase(title),
		XMLURL:       xmlURL,
		LastPollTime: Never,
	}
}

func (*DirectFeed) isFeed() {}

// Kind implements Feed.
func (*DirectFeed) Kind() string { return "direct" }

// ReadingLists returns the reading lists that reference this feed.
func (f *DirectFeed) ReadingLists() []*ReadingList {
	out := make([]*ReadingList, len(f.readingLists))
	copy(out, f.readingLists)
	return out
}

// ComputeSyncHash digests the identity-relevant fields of the feed. The
// result is never 0, which is reserved for "no hash recorded".
func (f *DirectFeed) ComputeSyncHash() uint64 {
	h := xxhash.Sum64String(strings.ToLower(strings.TrimSpace(f.XMLURL)))
	if h == 0 {
		return 1
	}
	return h
}

// TransferFrom copies every mutable property of src onto f. Identity,
// the sync hash and membership are left alone.
func (f *DirectFeed) TransferFrom(src *DirectFeed) {
	f.transferBase(&src.FeedBase)
	f.XMLURL = src.XMLURL
	f.UserTitle = src.UserTitle
	f.UserAuthor = src.UserAuthor
	f.UserDescription = src.UserDescription
	f.Disabled = src.Disabled
	f.PurgeLimit = src.PurgeLimit
	f.Tags = append([]string(nil), src.Tags...)
	f.UpdatePeriod = src.UpdatePeriod
}

// MergeKeys adds the read and pinned keys of src that f does not carry yet.
// It reports whether anything changed.
func (f *DirectFeed) MergeKeys(src *DirectFeed) bool {
	var changed bool
	f.ReadKeys, changed = mergeKeys(f.ReadKeys, src.ReadKeys)
	var pinnedChanged bool
	f.PinnedKeys, pinnedChanged = mergeKeys(f.PinnedKeys, src.PinnedKeys)
	return changed || pinnedChanged
}

// MissingKeys reports whether src carries read or pinned keys f lacks.
func (f *DirectFeed) MissingKeys(src *DirectFeed) bool {
	return !containsAll(f.ReadKeys, src.ReadKeys) || !containsAll(f.PinnedKeys, src.PinnedKeys)
}

func (f *DirectFeed) addReadingList(rl *ReadingList) {
	for _, existing := range f.readingLists {
		if existing == rl {
			return
		}
	}
	f.readingLists = append(f.readingLists, rl)
}

func (f *DirectFeed) removeReadingList(rl *ReadingList) {
	for i, existing := range f.readingLists {
		if existing == rl {
			f.readingLists = append(f.readingLists[:i], f.readingLists[i+1:]...)
			return
		}
	}
}

// Detach unlinks the feed from every guide and reading list it belongs to.
func (f *DirectFeed) Detach() {
	for _, rl := range f.ReadingLists() {
		rl.Remove(f)
	}
	detachFromGuides(f)
}

// QueryType selects what a query feed collects.
type QueryType string

const (
	QueryPinned   QueryType = "pinned"
	QueryUnread   QueryType = "unread"
	QueryKeywords QueryType = "keywords"
	QueryTagged   QueryType = "tagged"
	QuerySince    QueryType = "since"
)

// IsValid returns true if the query type is recognized.
func (q QueryType) IsValid() bool {
	switch q {
	case QueryPinned, QueryUnread, QueryKeywords, QueryTagged, QuerySince:
		return true
	default:
		return false
	}
}

// QueryFeed is a computed feed defined by a query type and a parameter.
type QueryFeed struct {
	FeedBase

	QueryType  QueryType
	Parameter  string
	PurgeLimit int
}

// NewQueryFeed creates a query feed with a fresh identifier.
func NewQueryFeed(title string, queryType QueryType, parameter string) *QueryFeed {
	return &QueryFeed{
		FeedBase:  newFeedBase(title),
		QueryType: queryType,
		Parameter: parameter,
	}
}

func (*QueryFeed) isFeed() {}

// Kind implements Feed.
func (*QueryFeed) Kind() string { return "query" }

// TransferFrom copies the mutable properties of src onto f.
func (f *QueryFeed) TransferFrom(src *QueryFeed) {
	f.transferBase(&src.FeedBase)
	f.QueryType = src.QueryType
	f.Parameter = src.Parameter
	f.PurgeLimit = src.PurgeLimit
}

// SearchFeed is a computed feed defined by a saved search expression.
type SearchFeed struct {
	FeedBase

	Query      string
	PurgeLimit int
}

// NewSearchFeed creates a search feed with a fresh identifier.
func NewSearchFeed(title, query string) *SearchFeed {
	return &SearchFeed{
		FeedBase: newFeedBase(title),
		Query:    query,
	}
}

func (*SearchFeed) isFeed() {}

// Kind implements Feed.
func (*SearchFeed) Kind() string { return "search" }

// TransferFrom copies the mutable properties of src onto f.
func (f *SearchFeed) TransferFrom(src *SearchFeed) {
	f.transferBase(&src.FeedBase)
	f.Query = src.Query
	f.PurgeLimit = src.PurgeLimit
}

// DisplayTitle returns the title a user would see for the feed.
func DisplayTitle(f Feed) string {
	if d, ok := f.(*DirectFeed); ok {
		if d.UserTitle != "" {
			return d.UserTitle
		}
		if d.Title == "" {
			return d.XMLURL
		}
	}
	return f.Base().Title
}

// Detach unlinks any feed variant from all guides and reading lists.
func Detach(f Feed) {
	if d, ok := f.(*DirectFeed); ok {
		d.Detach()
		return
	}
	detachFromGuides(f)
}

func detachFromGuides(f Feed) {
	for _, g := range f.Base().Guides() {
		g.Unlink(f)
	}
}

func mergeKeys(dst, src []string) ([]string, bool) {
	seen := make(map[string]struct{}, len(dst))
	for _, k := range dst {
		seen[k] = struct{}{}
	}
	changed := false
	for _, k := range src {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		dst = append(dst, k)
		changed = true
	}
	return dst, changed
}

func containsAll(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	seen := make(map[string]struct{}, len(have))
	for _, k := range have {
		seen[k] = struct{}{}
	}
	for _, k := range want {
		if _, ok := seen[k]; !ok {
			return false
		}
	}
	return true
}

// Copy returns a copy of f that belongs to no guide or reading list and
// carries a fresh identifier.
func Copy(f Feed) Feed {
	switch v := f.(type) {
	case *DirectFeed:
		return CopyDirect(v)
	case *QueryFeed:
		c := *v
		c.FeedBase = v.FeedBase.detachedCopy()
		return &c
	case *SearchFeed:
		c := *v
		c.FeedBase = v.FeedBase.detachedCopy()
		return &c
	default:
		return nil
	}
}

// CopyDirect is Copy for direct feeds.
func CopyDirect(f *DirectFeed) *DirectFeed {
	c := *f
	c.FeedBase = f.FeedBase.detachedCopy()
	c.Tags = append([]string(nil), f.Tags...)
	c.ReadKeys = append([]string(nil), f.ReadKeys...)
	c.PinnedKeys = append([]string(nil), f.PinnedKeys...)
	c.readingLists = nil
	return &c
}

func (b FeedBase) detachedCopy() FeedBase {
	b.ID = uuid.NewString()
	b.guides = nil
	return b
}
