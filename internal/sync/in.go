package sync

import (
	"context"
	"fmt"

	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/model"
)

// SyncIn loads the service state into the local hierarchy.
type SyncIn struct {
	env  *Env
	opts Options
}

// NewSyncIn creates an inbound run.
func NewSyncIn(env *Env, opts Options) *SyncIn {
	return &SyncIn{env: env, opts: opts}
}

// Run performs the inbound synchronisation. The last-sync-in bookkeeping is
// recorded whatever the outcome.
func (s *SyncIn) Run(ctx context.Context) *Stats {
	logger := s.env.logger(ctx)
	defer logging.Timer(logger, "sync-in")()

	stats := newStats(DirectionIn, s.env.now())
	progress := s.env.progress()
	progress.Started("Synchronizing from the service", s.steps())

	if err := s.run(ctx, stats); err != nil {
		stats.fail(err, logger)
	}

	stats.End = s.env.now()
	if s.env.State != nil {
		if err := s.env.State.RecordSyncIn(stats.End.UnixMilli(), !stats.Failed); err != nil {
			logger.Warn("failed to record sync state", logging.Direction(string(DirectionIn)), logging.Err(err))
		}
	}

	progress.Finished(stats.Text())
	s.env.observe(stats)
	return stats
}

func (s *SyncIn) steps() int {
	n := 0
	if s.opts.SyncPreferences {
		n++
	}
	if s.opts.SyncFeeds {
		n += 2
	}
	return n
}

func (s *SyncIn) run(ctx context.Context, stats *Stats) error {
	if s.opts.SyncPreferences {
		if err := s.loadPreferences(ctx, stats); err != nil {
			return err
		}
	}
	if s.opts.SyncFeeds {
		if err := s.syncFeeds(ctx, stats); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncIn) loadPreferences(ctx context.Context, stats *Stats) error {
	progress := s.env.progress()
	progress.Step("Loading preferences")
	defer progress.StepCompleted()

	remote, err := s.env.Client.GetPreferences(ctx, s.opts.Credentials)
	if err != nil {
		return err
	}
	if s.env.State == nil {
		return nil
	}
	loaded, err := s.env.State.ApplyRemote(remote, s.opts.Mode.CopyServiceLayout())
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}
	if err := s.env.State.Save(); err != nil {
		return err
	}
	stats.LoadedPrefs = len(loaded)
	return nil
}

func (s *SyncIn) syncFeeds(ctx context.Context, stats *Stats) error {
	logger := s.env.logger(ctx)
	progress := s.env.progress()

	progress.Step("Fetching guides and feeds")
	remote, err := s.env.Client.FetchSnapshot(ctx, s.opts.Credentials)
	progress.StepCompleted()
	if err != nil {
		return err
	}

	progress.Step("Applying changes")
	defer progress.StepCompleted()

	return s.env.Local.Update(func(local *model.Hierarchy) error {
		changes, err := Evaluate(ctx, local, remote, EvaluateOptions{
			Mode:       s.opts.Mode,
			Tombstones: s.env.Tombstones,
		})
		if err != nil {
			return err
		}
		if changes.IsEmpty() {
			logger.Debug("local hierarchy is up to date")
			return nil
		}

		if changes.HasAdditions() {
			conf, err := s.env.confirmer().Confirm(ctx, changes.AddReadingLists, changes.AddFeeds)
			if err != nil {
				return fmt.Errorf("confirmation failed: %w", err)
			}
			if conf.Decision == Cancelled {
				logger.Info("additions cancelled by user", logging.Count(len(changes.AddFeeds)))
				stats.Cancelled = true
				return nil
			}
			changes.Restrict(conf.ReadingLists, conf.Feeds)
		}

		result := Apply(ctx, local, changes, ApplyOptions{
			Now:       s.env.now().UnixMilli(),
			Refresher: s.env.Refresher,
			Sanitizer: s.env.sanitizer(),
			Logger:    logger,
		})
		stats.CreatedGuides = result.CreatedGuides
		stats.AddedFeeds = result.AddedFeeds
		stats.RemovedFeeds = result.RemovedFeeds
		stats.UpdatedFeeds = result.UpdatedFeeds

		logger.Info("applied service changes",
			logging.Direction(string(DirectionIn)),
			logging.Count(result.AddedFeeds),
		)

		if s.env.Saver != nil {
			if err := s.env.Saver.Save(local); err != nil {
				return fmt.Errorf("failed to save local guides: %w", err)
			}
		}
		return nil
	})
}
