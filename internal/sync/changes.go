package sync

import (
	"fmt"
	"strings"

	"github.com/klauern/feedsync/internal/model"
)

// FeedAddition is a remote feed to add under the local guide titled like
// the remote guide.
type FeedAddition struct {
	Guide *model.Guide
	Feed  model.Feed
}

// FeedRemoval is a local feed to unlink from a local guide.
type FeedRemoval struct {
	Guide *model.Guide
	Feed  model.Feed
}

// FeedUpdate transfers the properties of Remote onto Local.
type FeedUpdate struct {
	Local  model.Feed
	Remote model.Feed
}

// KeyMerge adds the read and pinned keys of Remote to Local.
type KeyMerge struct {
	Local  *model.DirectFeed
	Remote *model.DirectFeed
}

// GuideUpdate copies the properties of Remote onto Local.
type GuideUpdate struct {
	Local  *model.Guide
	Remote *model.Guide
}

// ReadingListAddition is a remote reading list to recreate locally.
type ReadingListAddition struct {
	Guide *model.Guide
	List  *model.ReadingList
}

// ReadingListRemoval is a local reading list to drop.
type ReadingListRemoval struct {
	Guide *model.Guide
	List  *model.ReadingList
}

// Changes is the change-set produced by Evaluate and consumed by Apply.
type Changes struct {
	AddFeeds           []FeedAddition
	RemoveFeeds        []FeedRemoval
	UpdateFeeds        []FeedUpdate
	MergeKeys          []KeyMerge
	UpdateGuides       []GuideUpdate
	AddReadingLists    []ReadingListAddition
	RemoveReadingLists []ReadingListRemoval

	updated map[model.Feed]struct{}
	merged  map[*model.DirectFeed]struct{}
}

// NewChanges returns an empty change-set.
func NewChanges() *Changes {
	return &Changes{
		updated: make(map[model.Feed]struct{}),
		merged:  make(map[*model.DirectFeed]struct{}),
	}
}

func (c *Changes) addFeed(g *model.Guide, f model.Feed) {
	c.AddFeeds = append(c.AddFeeds, FeedAddition{Guide: g, Feed: f})
}

func (c *Changes) removeFeed(g *model.Guide, f model.Feed) {
	c.RemoveFeeds = append(c.RemoveFeeds, FeedRemoval{Guide: g, Feed: f})
}

// updateFeed queues a property transfer; a local feed is queued at most once.
func (c *Changes) updateFeed(local, remote model.Feed) {
	if _, ok := c.updated[local]; ok {
		return
	}
	c.updated[local] = struct{}{}
	c.UpdateFeeds = append(c.UpdateFeeds, FeedUpdate{Local: local, Remote: remote})
}

func (c *Changes) mergeKeys(local, remote *model.DirectFeed) {
	if _, ok := c.merged[local]; ok {
		return
	}
	c.merged[local] = struct{}{}
	c.MergeKeys = append(c.MergeKeys, KeyMerge{Local: local, Remote: remote})
}

func (c *Changes) updateGuide(local, remote *model.Guide) {
	c.UpdateGuides = append(c.UpdateGuides, GuideUpdate{Local: local, Remote: remote})
}

func (c *Changes) addReadingList(g *model.Guide, rl *model.ReadingList) {
	c.AddReadingLists = append(c.AddReadingLists, ReadingListAddition{Guide: g, List: rl})
}

func (c *Changes) removeReadingList(g *model.Guide, rl *model.ReadingList) {
	c.RemoveReadingLists = append(c.RemoveReadingLists, ReadingListRemoval{Guide: g, List: rl})
}

// HasAdditions reports whether the change-set adds feeds or reading lists.
func (c *Changes) HasAdditions() bool {
	return len(c.AddFeeds) > 0 || len(c.AddReadingLists) > 0
}

// IsEmpty reports whether applying the change-set would change nothing.
func (c *Changes) IsEmpty() bool {
	return !c.HasAdditions() &&
		len(c.RemoveFeeds) == 0 &&
		len(c.UpdateFeeds) == 0 &&
		len(c.MergeKeys) == 0 &&
		len(c.UpdateGuides) == 0 &&
		len(c.RemoveReadingLists) == 0
}

// Restrict keeps only the additions the user confirmed. Entries are matched
// by identity against the candidates handed to the Confirmer.
func (c *Changes) Restrict(lists []ReadingListAddition, feeds []FeedAddition) {
	keepFeeds := make(map[FeedAddition]struct{}, len(feeds))
	for _, f := range feeds {
		keepFeeds[f] = struct{}{}
	}
	keepLists := make(map[ReadingListAddition]struct{}, len(lists))
	for _, l := range lists {
		keepLists[l] = struct{}{}
	}

	var addFeeds []FeedAddition
	for _, f := range c.AddFeeds {
		if _, ok := keepFeeds[f]; ok {
			addFeeds = append(addFeeds, f)
		}
	}
	var addLists []ReadingListAddition
	for _, l := range c.AddReadingLists {
		if _, ok := keepLists[l]; ok {
			addLists = append(addLists, l)
		}
	}
	c.AddFeeds = addFeeds
	c.AddReadingLists = addLists
}

// Summary returns a human-readable listing of the change-set.
func (c *Changes) Summary() string {
	var sb strings.Builder

	if c.IsEmpty() {
		sb.WriteString("No changes\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("  Add feeds:            %d\n", len(c.AddFeeds)))
	sb.WriteString(fmt.Sprintf("  Remove feeds:         %d\n", len(c.RemoveFeeds)))
	sb.WriteString(fmt.Sprintf("  Update feeds:         %d\n", len(c.UpdateFeeds)))
	sb.WriteString(fmt.Sprintf("  Merge article keys:   %d\n", len(c.MergeKeys)))
	sb.WriteString(fmt.Sprintf("  Update guides:        %d\n", len(c.UpdateGuides)))
	sb.WriteString(fmt.Sprintf("  Add reading lists:    %d\n", len(c.AddReadingLists)))
	sb.WriteString(fmt.Sprintf("  Remove reading lists: %d\n", len(c.RemoveReadingLists)))

	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		sb.WriteString("\n" + title + ":\n")
		for _, l := range lines {
			sb.WriteString("  " + l + "\n")
		}
	}

	var lines []string
	for _, a := range c.AddFeeds {
		lines = append(lines, fmt.Sprintf("+ %s / %s", a.Guide.Title, model.DisplayTitle(a.Feed)))
	}
	for _, a := range c.AddReadingLists {
		lines = append(lines, fmt.Sprintf("+ %s / list %s", a.Guide.Title, a.List.URL))
	}
	section("Additions", lines)

	lines = nil
	for _, r := range c.RemoveFeeds {
		lines = append(lines, fmt.Sprintf("- %s / %s", r.Guide.Title, model.DisplayTitle(r.Feed)))
	}
	for _, r := range c.RemoveReadingLists {
		lines = append(lines, fmt.Sprintf("- %s / list %s", r.Guide.Title, r.List.URL))
	}
	section("Removals", lines)

	lines = nil
	for _, u := range c.UpdateFeeds {
		lines = append(lines, "~ "+model.DisplayTitle(u.Local))
	}
	for _, u := range c.UpdateGuides {
		lines = append(lines, "~ guide "+u.Local.Title)
	}
	section("Updates", lines)

	return sb.String()
}
