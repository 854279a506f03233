package sync

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/model"
)

// SyncOut publishes the local hierarchy and preferences to the service.
type SyncOut struct {
	env   *Env
	opts  Options
	pings gosync.WaitGroup
}

// NewSyncOut creates an outbound run.
func NewSyncOut(env *Env, opts Options) *SyncOut {
	return &SyncOut{env: env, opts: opts}
}

// WaitPings blocks until every guide ping started by Run has finished.
func (s *SyncOut) WaitPings() {
	s.pings.Wait()
}

type linkRef struct {
	guide *model.Guide
	feed  model.Feed
}

// snapshot is what gets pushed, captured under the hierarchy lock.
type snapshot struct {
	doc       *model.Document
	hashes    map[*model.DirectFeed]uint64
	links     []linkRef
	lists     []*model.ReadingList
	pings     []string
	feedCount int
}

// Run performs the outbound synchronisation. The last-sync-out bookkeeping
// is recorded whatever the outcome.
func (s *SyncOut) Run(ctx context.Context) *Stats {
	logger := s.env.logger(ctx)
	defer logging.Timer(logger, "sync-out")()

	stats := newStats(DirectionOut, s.env.now())
	progress := s.env.progress()
	progress.Started("Synchronizing to the service", s.steps())

	snap := s.capture()
	if err := s.run(ctx, stats, snap); err != nil {
		stats.fail(err, logger)
	}

	stats.End = s.env.now()
	if s.env.State != nil {
		if err := s.env.State.RecordSyncOut(stats.End.UnixMilli(), !stats.Failed, snap.feedCount); err != nil {
			logger.Warn("failed to record sync state", logging.Direction(string(DirectionOut)), logging.Err(err))
		}
	}

	progress.Finished(stats.Text())
	s.env.observe(stats)
	return stats
}

func (s *SyncOut) steps() int {
	n := 0
	if s.opts.SyncFeeds {
		n++
		if s.opts.PingPublished {
			n++
		}
	}
	if s.opts.SyncPreferences {
		n++
	}
	return n
}

// capture exports the hierarchy and the pre-push sync hash of every direct
// feed.
func (s *SyncOut) capture() *snapshot {
	snap := &snapshot{hashes: make(map[*model.DirectFeed]uint64)}
	s.env.Local.View(func(h *model.Hierarchy) {
		byID := make(map[string]uint64)
		for _, d := range h.DirectFeeds() {
			hash := d.ComputeSyncHash()
			snap.hashes[d] = hash
			byID[d.ID] = hash
		}
		snap.doc = model.Export(h)
		for i, r := range snap.doc.Feeds {
			if hash, ok := byID[r.ID]; ok {
				snap.doc.Feeds[i].SyncHash = hash
			}
		}
		for _, g := range h.Guides() {
			for _, f := range g.AllFeeds() {
				snap.links = append(snap.links, linkRef{guide: g, feed: f})
			}
			snap.lists = append(snap.lists, g.ReadingLists()...)
			if g.ShouldPing() {
				snap.pings = append(snap.pings, g.Title)
			}
		}
		snap.feedCount = len(h.Feeds())
	})
	return snap
}

func (s *SyncOut) run(ctx context.Context, stats *Stats, snap *snapshot) error {
	if s.opts.SyncFeeds {
		userID, err := s.pushFeeds(ctx, snap)
		if err != nil {
			return err
		}
		stats.SavedFeeds = snap.feedCount
		if s.opts.PingPublished {
			s.pingGuides(ctx, userID, snap.pings)
		}
	}
	if s.opts.SyncPreferences {
		if err := s.pushPreferences(ctx, stats); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncOut) pushFeeds(ctx context.Context, snap *snapshot) (string, error) {
	progress := s.env.progress()
	progress.Step("Saving guides and feeds")
	defer progress.StepCompleted()

	userID, err := s.env.Client.PushSnapshot(ctx, s.opts.Credentials, snap.doc)
	if err != nil {
		return "", err
	}

	now := s.env.now().UnixMilli()
	err = s.env.Local.Update(func(h *model.Hierarchy) error {
		for d, hash := range snap.hashes {
			d.SyncHash = hash
		}
		for _, l := range snap.links {
			l.guide.SetLinkSyncTime(l.feed, now)
		}
		for _, rl := range snap.lists {
			rl.LastSyncTime = now
		}
		if s.env.Saver != nil {
			if err := s.env.Saver.Save(h); err != nil {
				return fmt.Errorf("failed to save local guides: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if s.env.State != nil {
		if userID != "" {
			s.env.State.SetUserID(userID)
		} else {
			userID = s.env.State.UserID()
		}
	}

	if s.env.Tombstones != nil {
		if err := s.env.Tombstones.Purge(ctx); err != nil {
			return "", err
		}
	}
	return userID, nil
}

// pingGuides notifies the service about published guides. Pings run in the
// background; failures are logged per guide and never fail the run.
func (s *SyncOut) pingGuides(ctx context.Context, userID string, titles []string) {
	progress := s.env.progress()
	progress.Step("Notifying about published guides")
	defer progress.StepCompleted()

	logger := s.env.logger(ctx)
	if len(titles) == 0 {
		return
	}
	if userID == "" {
		logger.Warn("no service user id, skipping guide pings", logging.Count(len(titles)))
		return
	}

	pingCtx := context.WithoutCancel(ctx)
	for _, title := range titles {
		s.pings.Add(1)
		go func(title string) {
			defer s.pings.Done()
			if err := s.env.Client.PingGuide(pingCtx, userID, title); err != nil {
				logger.Warn("failed to ping published guide", logging.Guide(title), logging.Err(err))
				return
			}
			logger.Debug("pinged published guide", logging.Guide(title))
		}(title)
	}
}

func (s *SyncOut) pushPreferences(ctx context.Context, stats *Stats) error {
	if s.env.State == nil {
		return nil
	}
	progress := s.env.progress()
	progress.Step("Saving preferences")
	defer progress.StepCompleted()

	if err := s.env.Client.PutPreferences(ctx, s.opts.Credentials, s.env.State.EncodePreferences()); err != nil {
		return err
	}
	stats.SavedPrefs = len(s.env.State.Snapshot().Preferences)
	return nil
}
