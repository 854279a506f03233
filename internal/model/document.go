package model

import (
	"errors"
	"fmt"
)

// DocumentVersion is the current version of the serialised hierarchy.
const DocumentVersion = 1

var (
	// ErrUnknownFeed is returned when a guide or reading list references a
	// feed id that the document does not declare.
	ErrUnknownFeed = errors.New("unknown feed reference")
	// ErrUnknownKind is returned for a feed record with an unrecognized kind.
	ErrUnknownKind = errors.New("unknown feed kind")
)

// FeedRecord is the serialised form of any feed variant. Fields that do not
// apply to the record's kind are left empty.
type FeedRecord struct {
	ID              string   `json:"id" yaml:"id"`
	Kind            string   `json:"kind" yaml:"kind"`
	Title           string   `json:"title,omitempty" yaml:"title,omitempty"`
	Rating          int      `json:"rating" yaml:"rating"`
	ViewMode        int      `json:"view_mode,omitempty" yaml:"view_mode,omitempty"`
	ViewModeEnabled bool     `json:"view_mode_enabled,omitempty" yaml:"view_mode_enabled,omitempty"`
	Type            FeedType `json:"type,omitempty" yaml:"type,omitempty"`
	LastUpdateTime  int64    `json:"last_update_time" yaml:"last_update_time"`
	PurgeLimit      int      `json:"purge_limit,omitempty" yaml:"purge_limit,omitempty"`

	// direct
	XMLURL          string   `json:"xml_url,omitempty" yaml:"xml_url,omitempty"`
	SyncHash        uint64   `json:"sync_hash,omitempty" yaml:"sync_hash,omitempty"`
	UserTitle       string   `json:"user_title,omitempty" yaml:"user_title,omitempty"`
	UserAuthor      string   `json:"user_author,omitempty" yaml:"user_author,omitempty"`
	UserDescription string   `json:"user_description,omitempty" yaml:"user_description,omitempty"`
	Disabled        bool     `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Tags            []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	ReadKeys        []string `json:"read_keys,omitempty" yaml:"read_keys,omitempty"`
	PinnedKeys      []string `json:"pinned_keys,omitempty" yaml:"pinned_keys,omitempty"`
	UpdatePeriod    int64    `json:"update_period,omitempty" yaml:"update_period,omitempty"`
	LastPollTime    int64    `json:"last_poll_time,omitempty" yaml:"last_poll_time,omitempty"`

	// query
	QueryType QueryType `json:"query_type,omitempty" yaml:"query_type,omitempty"`
	Parameter string    `json:"parameter,omitempty" yaml:"parameter,omitempty"`

	// search
	Query string `json:"query,omitempty" yaml:"query,omitempty"`
}

// LinkRecord is a serialised guide->feed link.
type LinkRecord struct {
	FeedID       string `json:"feed_id" yaml:"feed_id"`
	LastSyncTime int64  `json:"last_sync_time" yaml:"last_sync_time"`
}

// ReadingListRecord is a serialised reading list.
type ReadingListRecord struct {
	URL          string   `json:"url" yaml:"url"`
	Title        string   `json:"title,omitempty" yaml:"title,omitempty"`
	LastSyncTime int64    `json:"last_sync_time" yaml:"last_sync_time"`
	FeedIDs      []string `json:"feed_ids,omitempty" yaml:"feed_ids,omitempty"`
}

// GuideRecord is a serialised guide.
type GuideRecord struct {
	Title                string              `json:"title" yaml:"title"`
	IconKey              string              `json:"icon_key,omitempty" yaml:"icon_key,omitempty"`
	Publishing           Publishing          `json:"publishing" yaml:"publishing"`
	AutoFeedsDiscovery   bool                `json:"auto_feeds_discovery" yaml:"auto_feeds_discovery"`
	NotificationsAllowed bool                `json:"notifications_allowed" yaml:"notifications_allowed"`
	LastUpdateTime       int64               `json:"last_update_time" yaml:"last_update_time"`
	Links                []LinkRecord        `json:"links,omitempty" yaml:"links,omitempty"`
	ReadingLists         []ReadingListRecord `json:"reading_lists,omitempty" yaml:"reading_lists,omitempty"`
}

// Document is the serialisable form of a Hierarchy: a flat feed table plus
// guides that reference feeds by id.
type Document struct {
	Version int           `json:"version" yaml:"version"`
	Feeds   []FeedRecord  `json:"feeds" yaml:"feeds"`
	Guides  []GuideRecord `json:"guides" yaml:"guides"`
}

// Export converts h into a Document. The caller must hold the hierarchy lock
// or otherwise guarantee exclusive access.
func Export(h *Hierarchy) *Document {
	doc := &Document{Version: DocumentVersion}
	for _, f := range h.Feeds() {
		doc.Feeds = append(doc.Feeds, feedRecord(f))
	}
	for _, g := range h.guides {
		gr := GuideRecord{
			Title:                g.Title,
			IconKey:              g.IconKey,
			Publishing:           g.Publishing,
			AutoFeedsDiscovery:   g.AutoFeedsDiscovery,
			NotificationsAllowed: g.NotificationsAllowed,
			LastUpdateTime:       g.LastUpdateTime,
		}
		for _, l := range g.links {
			gr.Links = append(gr.Links, LinkRecord{FeedID: l.Feed.Base().ID, LastSyncTime: l.LastSyncTime})
		}
		for _, rl := range g.readingLists {
			rr := ReadingListRecord{URL: rl.URL, Title: rl.Title, LastSyncTime: rl.LastSyncTime}
			for _, f := range rl.feeds {
				rr.FeedIDs = append(rr.FeedIDs, f.ID)
			}
			gr.ReadingLists = append(gr.ReadingLists, rr)
		}
		doc.Guides = append(doc.Guides, gr)
	}
	return doc
}

func feedRecord(f Feed) FeedRecord {
	b := f.Base()
	r := FeedRecord{
		ID:              b.ID,
		Kind:            f.Kind(),
		Title:           b.Title,
		Rating:          b.Rating,
		ViewMode:        b.ViewMode,
		ViewModeEnabled: b.ViewModeEnabled,
		Type:            b.Type,
		LastUpdateTime:  b.LastUpdateTime,
	}
	switch v := f.(type) {
	case *DirectFeed:
		r.XMLURL = v.XMLURL
		r.SyncHash = v.SyncHash
		r.UserTitle = v.UserTitle
		r.UserAuthor = v.UserAuthor
		r.UserDescription = v.UserDescription
		r.Disabled = v.Disabled
		r.PurgeLimit = v.PurgeLimit
		r.Tags = append([]string(nil), v.Tags...)
		r.ReadKeys = append([]string(nil), v.ReadKeys...)
		r.PinnedKeys = append([]string(nil), v.PinnedKeys...)
		r.UpdatePeriod = v.UpdatePeriod
		r.LastPollTime = v.LastPollTime
	case *QueryFeed:
		r.QueryType = v.QueryType
		r.Parameter = v.Parameter
		r.PurgeLimit = v.PurgeLimit
	case *SearchFeed:
		r.Query = v.Query
		r.PurgeLimit = v.PurgeLimit
	}
	return r
}

// Import builds a Hierarchy from doc. Feed ids must be unique; references to
// undeclared feeds fail with ErrUnknownFeed.
func Import(doc *Document) (*Hierarchy, error) {
	feeds := make(map[string]Feed, len(doc.Feeds))
	for _, r := range doc.Feeds {
		f, err := feedFromRecord(r)
		if err != nil {
			return nil, err
		}
		feeds[r.ID] = f
	}

	h := NewHierarchy()
	for _, gr := range doc.Guides {
		g := NewGuide(gr.Title)
		g.IconKey = gr.IconKey
		g.Publishing = gr.Publishing
		g.AutoFeedsDiscovery = gr.AutoFeedsDiscovery
		g.NotificationsAllowed = gr.NotificationsAllowed
		g.LastUpdateTime = gr.LastUpdateTime
		for _, lr := range gr.Links {
			f, ok := feeds[lr.FeedID]
			if !ok {
				return nil, fmt.Errorf("guide %q: %w: %s", gr.Title, ErrUnknownFeed, lr.FeedID)
			}
			g.Link(f, lr.LastSyncTime)
		}
		for _, rr := range gr.ReadingLists {
			rl := NewReadingList(rr.URL, rr.Title)
			rl.LastSyncTime = rr.LastSyncTime
			for _, id := range rr.FeedIDs {
				f, ok := feeds[id]
				if !ok {
					return nil, fmt.Errorf("reading list %q: %w: %s", rr.URL, ErrUnknownFeed, id)
				}
				d, ok := f.(*DirectFeed)
				if !ok {
					return nil, fmt.Errorf("reading list %q: feed %s is not a direct feed", rr.URL, id)
				}
				rl.Add(d)
			}
			g.AddReadingList(rl)
		}
		h.AddGuide(g)
	}
	return h, nil
}

func feedFromRecord(r FeedRecord) (Feed, error) {
	base := FeedBase{
		ID:              r.ID,
		Title:           r.Title,
		Rating:          r.Rating,
		ViewMode:        r.ViewMode,
		ViewModeEnabled: r.ViewModeEnabled,
		Type:            r.Type,
		LastUpdateTime:  r.LastUpdateTime,
	}
	if base.Type == "" {
		base.Type = FeedTypeText
	}
	switch r.Kind {
	case "direct":
		return &DirectFeed{
			FeedBase:        base,
			XMLURL:          r.XMLURL,
			SyncHash:        r.SyncHash,
			UserTitle:       r.UserTitle,
			UserAuthor:      r.UserAuthor,
			UserDescription: r.UserDescription,
			Disabled:        r.Disabled,
			PurgeLimit:      r.PurgeLimit,
			Tags:            r.Tags,
			ReadKeys:        r.ReadKeys,
			PinnedKeys:      r.PinnedKeys,
			UpdatePeriod:    r.UpdatePeriod,
			LastPollTime:    r.LastPollTime,
		}, nil
	case "query":
		return &QueryFeed{FeedBase: base, QueryType: r.QueryType, Parameter: r.Parameter, PurgeLimit: r.PurgeLimit}, nil
	case "search":
		return &SearchFeed{FeedBase: base, Query: r.Query, PurgeLimit: r.PurgeLimit}, nil
	default:
		return nil, fmt.Errorf("feed %s: %w: %q", r.ID, ErrUnknownKind, r.Kind)
	}
}
