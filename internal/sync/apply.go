package sync

import (
	"context"
	"log/slog"

	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/match"
	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/security"
)

// ApplyOptions configures Apply.
type ApplyOptions struct {
	// Now is the link and reading-list sync time recorded for additions,
	// in unix milliseconds.
	Now int64
	// Refresher receives feeds that need their content fetched. Optional.
	Refresher Refresher
	// Sanitizer cleans free text copied from the service. Optional.
	Sanitizer *security.Sanitizer
	Logger    *slog.Logger
}

// ApplyResult counts what Apply changed.
type ApplyResult struct {
	CreatedGuides     int
	AddedFeeds        int
	AddedReadingLists int
	RemovedFeeds      int
	RemovedLists      int
	UpdatedFeeds      int
	UpdatedGuides     int
	RemovedGuides     int
	Adopted           []*model.DirectFeed
}

type applier struct {
	local  *model.Hierarchy
	opts   ApplyOptions
	logger *slog.Logger
	result *ApplyResult
}

// Apply performs the change-set on local. It runs to completion; there is
// no partial rollback. Remote objects referenced by the change-set are
// copied, never moved, so the remote snapshot stays intact. The caller must
// hold the local hierarchy lock.
func Apply(ctx context.Context, local *model.Hierarchy, c *Changes, opts ApplyOptions) *ApplyResult {
	if opts.Sanitizer == nil {
		opts.Sanitizer = security.NewSanitizer()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.WithContext(ctx)
	}
	a := &applier{local: local, opts: opts, logger: logger, result: &ApplyResult{}}

	before := len(local.Guides())
	wasEmpty := make(map[*model.Guide]bool)
	for _, g := range local.Guides() {
		if g.IsEmpty() {
			wasEmpty[g] = true
		}
	}

	for _, add := range c.AddFeeds {
		a.addFeed(add)
	}
	for _, add := range c.AddReadingLists {
		a.addReadingList(add)
	}
	for _, rm := range c.RemoveReadingLists {
		if rm.Guide.RemoveReadingList(rm.List) {
			a.result.RemovedLists++
		}
	}
	for _, rm := range c.RemoveFeeds {
		a.removeFeed(rm)
	}
	for _, km := range c.MergeKeys {
		km.Local.MergeKeys(km.Remote)
	}
	for _, up := range c.UpdateFeeds {
		if a.transfer(up.Local, up.Remote) {
			a.result.UpdatedFeeds++
		}
	}
	for _, up := range c.UpdateGuides {
		up.Local.CopyPropertiesFrom(up.Remote)
		a.sanitizeGuide(up.Local)
		a.result.UpdatedGuides++
	}

	after := len(local.Guides())
	if created := after - before; created > 0 {
		a.result.CreatedGuides = created
	}

	// Only guides emptied by this pass are pruned.
	for _, g := range local.Guides() {
		if g.IsEmpty() && !wasEmpty[g] {
			local.RemoveGuide(g)
			a.result.RemovedGuides++
			a.logger.Debug("removed empty guide", logging.Guide(g.Title))
		}
	}

	return a.result
}

// findOrCreateGuide returns the local guide titled like pattern, creating it
// with the pattern's properties when missing.
func (a *applier) findOrCreateGuide(pattern *model.Guide) *model.Guide {
	if g := a.local.FindGuide(pattern.Title); g != nil {
		return g
	}
	g := model.NewGuide(pattern.Title)
	g.CopyPropertiesFrom(pattern)
	a.sanitizeGuide(g)
	a.local.AddGuide(g)
	a.logger.Debug("created guide", logging.Guide(g.Title))
	return g
}

func (a *applier) addFeed(add FeedAddition) {
	g := a.findOrCreateGuide(add.Guide)

	f := match.FindInHierarchy(add.Feed, a.local)
	if f == nil {
		f = a.adopt(add.Feed)
	}
	if g.HasFeed(f) {
		return
	}
	g.Link(f, a.opts.Now)
	a.result.AddedFeeds++
	a.logger.Debug("added feed", logging.Guide(g.Title), logging.Feed(model.DisplayTitle(f)))

	if d, ok := f.(*model.DirectFeed); ok {
		a.schedule(d)
	}
}

func (a *applier) addReadingList(add ReadingListAddition) {
	g := a.findOrCreateGuide(add.Guide)
	if g.FindReadingList(add.List.URL) != nil {
		return
	}

	rl := model.NewReadingList(add.List.URL, a.opts.Sanitizer.Text(add.List.Title))
	rl.LastSyncTime = a.opts.Now
	g.AddReadingList(rl)
	a.result.AddedReadingLists++

	for _, rf := range add.List.Feeds() {
		lf := match.FindDirect(rf, a.local)
		if lf == nil {
			lf = a.adopt(rf).(*model.DirectFeed)
			rl.Add(lf)
			a.schedule(lf)
			continue
		}
		rl.Add(lf)
	}
}

func (a *applier) removeFeed(rm FeedRemoval) {
	if d, ok := rm.Feed.(*model.DirectFeed); ok {
		for _, rl := range rm.Guide.ReadingLists() {
			rl.Remove(d)
		}
	}
	if rm.Guide.Unlink(rm.Feed) {
		a.result.RemovedFeeds++
		a.logger.Debug("removed feed", logging.Guide(rm.Guide.Title), logging.Feed(model.DisplayTitle(rm.Feed)))
	}
}

// adopt turns a remote feed into a local one with a fresh identity.
func (a *applier) adopt(remote model.Feed) model.Feed {
	f := model.Copy(remote)
	a.sanitizeFeed(f)
	if d, ok := f.(*model.DirectFeed); ok {
		a.result.Adopted = append(a.result.Adopted, d)
	}
	return f
}

// transfer copies the remote properties onto the local feed. Variants always
// agree because the pair was matched with match.AreSame.
func (a *applier) transfer(local, remote model.Feed) bool {
	switch l := local.(type) {
	case *model.DirectFeed:
		r, ok := remote.(*model.DirectFeed)
		if !ok {
			return false
		}
		l.MergeKeys(r)
		l.TransferFrom(r)
	case *model.QueryFeed:
		r, ok := remote.(*model.QueryFeed)
		if !ok {
			return false
		}
		l.TransferFrom(r)
	case *model.SearchFeed:
		r, ok := remote.(*model.SearchFeed)
		if !ok {
			return false
		}
		l.TransferFrom(r)
	default:
		return false
	}
	a.sanitizeFeed(local)
	return true
}

func (a *applier) schedule(d *model.DirectFeed) {
	if a.opts.Refresher != nil {
		a.opts.Refresher.Schedule(d)
	}
}

func (a *applier) sanitizeFeed(f model.Feed) {
	s := a.opts.Sanitizer
	b := f.Base()
	b.Title = s.Text(b.Title)
	if d, ok := f.(*model.DirectFeed); ok {
		d.UserTitle = s.Text(d.UserTitle)
		d.UserAuthor = s.Text(d.UserAuthor)
		d.UserDescription = s.Text(d.UserDescription)
		d.Tags = s.Texts(d.Tags)
	}
}

// sanitizeGuide cleans the publishing text. The guide title is its identity
// and is left untouched.
func (a *applier) sanitizeGuide(g *model.Guide) {
	s := a.opts.Sanitizer
	g.Publishing.Title = s.Text(g.Publishing.Title)
	g.Publishing.Tags = s.Texts(g.Publishing.Tags)
}
