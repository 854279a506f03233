package model

// Publishing holds the settings that control how a guide is published on the
// service.
type Publishing struct {
	Enabled            bool     `json:"enabled" yaml:"enabled"`
	Title              string   `json:"title,omitempty" yaml:"title,omitempty"`
	Tags               []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Public             bool     `json:"public" yaml:"public"`
	Rating             int      `json:"rating" yaml:"rating"`
	UpdateOnListChange bool     `json:"update_on_list_change" yaml:"update_on_list_change"`
}

// FeedLink is a direct guide->feed link with its own sync bookkeeping.
type FeedLink struct {
	Feed         Feed
	LastSyncTime int64
}

// Guide is a named container of feeds and reading lists. Guides are matched
// across synchronisation by exact title.
type Guide struct {
	Title                string
	IconKey              string
	Publishing           Publishing
	AutoFeedsDiscovery   bool
	NotificationsAllowed bool
	LastUpdateTime       int64

	links        []*FeedLink
	readingLists []*ReadingList
}

// NewGuide creates an empty guide.
func NewGuide(title string) *Guide {
	return &Guide{
		Title:                title,
		NotificationsAllowed: true,
		LastUpdateTime:       Never,
		Publishing:           Publishing{Rating: NoRating},
	}
}

// AllFeeds returns every directly linked feed in link order.
func (g *Guide) AllFeeds() []Feed {
	out := make([]Feed, 0, len(g.links))
	for _, l := range g.links {
		out = append(out, l.Feed)
	}
	return out
}

// DirectFeeds returns the directly linked feeds of the direct variant.
func (g *Guide) DirectFeeds() []*DirectFeed {
	var out []*DirectFeed
	for _, l := range g.links {
		if d, ok := l.Feed.(*DirectFeed); ok {
			out = append(out, d)
		}
	}
	return out
}

// Links returns a copy of the guide's direct links.
func (g *Guide) Links() []FeedLink {
	out := make([]FeedLink, 0, len(g.links))
	for _, l := range g.links {
		out = append(out, *l)
	}
	return out
}

// HasFeed reports whether f is directly linked to the guide.
func (g *Guide) HasFeed(f Feed) bool {
	return g.link(f) != nil
}

func (g *Guide) link(f Feed) *FeedLink {
	for _, l := range g.links {
		if l.Feed == f {
			return l
		}
	}
	return nil
}

// Link attaches f to the guide. Linking an already linked feed only updates
// the link's sync time.
func (g *Guide) Link(f Feed, lastSync int64) {
	if l := g.link(f); l != nil {
		l.LastSyncTime = lastSync
		return
	}
	g.links = append(g.links, &FeedLink{Feed: f, LastSyncTime: lastSync})
	f.Base().addGuide(g)
}

// Unlink detaches f from the guide. It reports whether f was linked.
func (g *Guide) Unlink(f Feed) bool {
	for i, l := range g.links {
		if l.Feed == f {
			g.links = append(g.links[:i], g.links[i+1:]...)
			f.Base().removeGuide(g)
			return true
		}
	}
	return false
}

// LinkSyncTime returns the last-sync time of the link to f, or Never when f
// is not linked or the link was never synced out.
func (g *Guide) LinkSyncTime(f Feed) int64 {
	if l := g.link(f); l != nil {
		return l.LastSyncTime
	}
	return Never
}

// SetLinkSyncTime updates the last-sync time of the link to f.
func (g *Guide) SetLinkSyncTime(f Feed, t int64) {
	if l := g.link(f); l != nil {
		l.LastSyncTime = t
	}
}

// ReadingLists returns the reading lists owned by the guide.
func (g *Guide) ReadingLists() []*ReadingList {
	out := make([]*ReadingList, len(g.readingLists))
	copy(out, g.readingLists)
	return out
}

// FindReadingList returns the reading list with the given URL. URLs are
// compared case-sensitively.
func (g *Guide) FindReadingList(url string) *ReadingList {
	for _, rl := range g.readingLists {
		if rl.URL == url {
			return rl
		}
	}
	return nil
}

// AddReadingList attaches rl to the guide, detaching it from its previous
// guide first.
func (g *Guide) AddReadingList(rl *ReadingList) {
	if rl.guide == g {
		return
	}
	if rl.guide != nil {
		rl.guide.RemoveReadingList(rl)
	}
	rl.guide = g
	g.readingLists = append(g.readingLists, rl)
}

// RemoveReadingList detaches rl from the guide and drops its feed references.
func (g *Guide) RemoveReadingList(rl *ReadingList) bool {
	for i, existing := range g.readingLists {
		if existing == rl {
			g.readingLists = append(g.readingLists[:i], g.readingLists[i+1:]...)
			for _, f := range rl.Feeds() {
				rl.Remove(f)
			}
			rl.guide = nil
			return true
		}
	}
	return false
}

// CopyPropertiesFrom copies icon, publishing, discovery and notification
// settings plus the update time. The title is never copied.
func (g *Guide) CopyPropertiesFrom(src *Guide) {
	g.IconKey = src.IconKey
	g.Publishing = src.Publishing
	g.Publishing.Tags = append([]string(nil), src.Publishing.Tags...)
	g.AutoFeedsDiscovery = src.AutoFeedsDiscovery
	g.NotificationsAllowed = src.NotificationsAllowed
	g.LastUpdateTime = src.LastUpdateTime
}

// IsEmpty reports whether the guide has no direct feeds and no reading lists.
func (g *Guide) IsEmpty() bool {
	return len(g.links) == 0 && len(g.readingLists) == 0
}

// ShouldPing reports whether the service must be notified when the guide's
// reading lists change.
func (g *Guide) ShouldPing() bool {
	return g.Publishing.Enabled && g.Publishing.UpdateOnListChange
}
