package sync

import (
	"context"
	"fmt"

	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/match"
	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/tombstone"
)

// EvaluateOptions configures Evaluate.
type EvaluateOptions struct {
	Mode Mode
	// Tombstones filters additions in merge mode. Nil means nothing was
	// ever deleted.
	Tombstones tombstone.Repository
}

type evaluator struct {
	ctx     context.Context
	copy    bool
	repo    tombstone.Repository
	changes *Changes
}

// Evaluate computes the change-set that brings local in line with remote.
// Neither hierarchy is modified. The caller must hold the local hierarchy
// lock.
func Evaluate(ctx context.Context, local, remote *model.Hierarchy, opts EvaluateOptions) (*Changes, error) {
	e := &evaluator{
		ctx:     ctx,
		copy:    opts.Mode.CopyServiceLayout(),
		repo:    opts.Tombstones,
		changes: NewChanges(),
	}

	// Guides match by title; with duplicates only the first one takes part.
	warnDuplicates(ctx, "local", local)
	warnDuplicates(ctx, "remote", remote)

	seen := make(map[string]bool)
	for _, rg := range remote.Guides() {
		if seen[rg.Title] {
			continue
		}
		seen[rg.Title] = true
		lg := local.FindGuide(rg.Title)
		if lg == nil {
			if err := e.newGuide(rg); err != nil {
				return nil, err
			}
			continue
		}
		if rg.LastUpdateTime > lg.LastUpdateTime {
			e.changes.updateGuide(lg, rg)
		}
		if err := e.guide(lg, rg); err != nil {
			return nil, err
		}
	}

	for _, lg := range local.Guides() {
		if remote.FindGuide(lg.Title) == nil {
			e.removedGuide(lg)
		}
	}

	remoteFeeds := remote.Feeds()
	for _, lf := range local.Feeds() {
		rf := findRemote(lf, remoteFeeds)
		if rf == nil {
			continue
		}
		if e.copy || rf.Base().LastUpdateTime > lf.Base().LastUpdateTime {
			e.changes.updateFeed(lf, rf)
		}
	}

	return e.changes, nil
}

func warnDuplicates(ctx context.Context, side string, h *model.Hierarchy) {
	for _, title := range h.DuplicateTitles() {
		logging.WithContext(ctx).Warn("duplicate guide title, later guides are ignored by sync",
			logging.Guide(title), logging.Operation(side))
	}
}

// newGuide queues everything in a remote guide that has no local
// counterpart.
func (e *evaluator) newGuide(rg *model.Guide) error {
	for _, rf := range rg.AllFeeds() {
		ok, err := e.allowed(rg.Title, match.Key(rf))
		if err != nil {
			return err
		}
		if ok {
			e.changes.addFeed(rg, rf)
		}
	}
	for _, rl := range rg.ReadingLists() {
		ok, err := e.allowed(rg.Title, match.ReadingListKey(rl))
		if err != nil {
			return err
		}
		if ok {
			e.changes.addReadingList(rg, rl)
		}
	}
	return nil
}

// guide diffs a pair of guides with the same title.
func (e *evaluator) guide(lg, rg *model.Guide) error {
	for _, rl := range rg.ReadingLists() {
		if lg.FindReadingList(rl.URL) == nil {
			e.changes.addReadingList(rg, rl)
		}
	}
	for _, ll := range lg.ReadingLists() {
		if rg.FindReadingList(ll.URL) == nil && (e.copy || ll.LastSyncTime != model.Never) {
			e.changes.removeReadingList(lg, ll)
		}
	}

	localFeeds := lg.AllFeeds()
	remoteFeeds := rg.AllFeeds()

	for _, rf := range remoteFeeds {
		lf, found := match.Find(rf, localFeeds)
		if !found {
			ok, err := e.allowed(rg.Title, match.Key(rf))
			if err != nil {
				return err
			}
			if ok {
				e.changes.addFeed(rg, rf)
			}
			continue
		}
		ld, lok := lf.(*model.DirectFeed)
		rd, rok := rf.(*model.DirectFeed)
		if lok && rok && ld.MissingKeys(rd) {
			e.changes.mergeKeys(ld, rd)
		}
	}

	for _, lf := range localFeeds {
		if findRemote(lf, remoteFeeds) != nil {
			continue
		}
		if e.copy || lg.LinkSyncTime(lf) != model.Never {
			e.changes.removeFeed(lg, lf)
		}
	}
	return nil
}

// removedGuide queues the contents of a local guide the service no longer
// has. Items never synced out survive in merge mode.
func (e *evaluator) removedGuide(lg *model.Guide) {
	for _, ll := range lg.ReadingLists() {
		if e.copy || ll.LastSyncTime != model.Never {
			e.changes.removeReadingList(lg, ll)
		}
	}
	for _, lf := range lg.AllFeeds() {
		if e.copy || lg.LinkSyncTime(lf) != model.Never {
			e.changes.removeFeed(lg, lf)
		}
	}
}

// allowed reports whether an addition survives the tombstone filter.
func (e *evaluator) allowed(guideTitle, key string) (bool, error) {
	if e.copy || e.repo == nil {
		return true, nil
	}
	deleted, err := e.repo.WasDeleted(e.ctx, guideTitle, key)
	if err != nil {
		return false, fmt.Errorf("failed to check tombstones: %w", err)
	}
	return !deleted, nil
}

// findRemote returns the remote feed matching the local one. The remote feed
// is always the pattern.
func findRemote(local model.Feed, remote []model.Feed) model.Feed {
	for _, rf := range remote {
		if match.AreSame(rf, local) {
			return rf
		}
	}
	return nil
}
