package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/security"
	"github.com/klauern/feedsync/internal/service"
	"github.com/klauern/feedsync/internal/state"
	"github.com/klauern/feedsync/internal/tombstone"
)

// Refresher schedules a content refresh of a feed. Schedule is called with
// the hierarchy lock held and must not block.
type Refresher interface {
	Schedule(feed *model.DirectFeed)
}

// ProgressListener receives progress notifications of a running direction.
type ProgressListener interface {
	// Started announces a process; steps < 0 means indeterminate.
	Started(msg string, steps int)
	Step(label string)
	StepCompleted()
	// Finished ends the process; an empty summary means none.
	Finished(summary string)
}

// Saver persists the local hierarchy. Save is called with the hierarchy
// lock held.
type Saver interface {
	Save(h *model.Hierarchy) error
}

// Observer is notified of every finished direction.
type Observer interface {
	ObserveSync(stats *Stats)
}

// Env carries the collaborators of a synchronisation run.
type Env struct {
	Local      *model.Hierarchy
	Client     service.Client
	Tombstones tombstone.Repository
	State      *state.Store

	// Optional collaborators.
	Refresher Refresher
	Confirmer Confirmer
	Progress  ProgressListener
	Saver     Saver
	Observer  Observer
	Sanitizer *security.Sanitizer
	Clock     func() time.Time
	Logger    *slog.Logger
}

// Options selects what a run synchronises.
type Options struct {
	Credentials     service.Credentials
	Mode            Mode
	SyncFeeds       bool
	SyncPreferences bool
	PingPublished   bool
}

// DefaultOptions returns options that synchronise everything in merge mode.
func DefaultOptions() Options {
	return Options{
		Mode:            ModeMerge,
		SyncFeeds:       true,
		SyncPreferences: true,
		PingPublished:   true,
	}
}

func (e *Env) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e *Env) logger(ctx context.Context) *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logging.WithContext(ctx)
}

func (e *Env) progress() ProgressListener {
	if e.Progress != nil {
		return e.Progress
	}
	return nopProgress{}
}

func (e *Env) confirmer() Confirmer {
	if e.Confirmer != nil {
		return e.Confirmer
	}
	return AcceptAll{}
}

func (e *Env) sanitizer() *security.Sanitizer {
	if e.Sanitizer == nil {
		e.Sanitizer = security.NewSanitizer()
	}
	return e.Sanitizer
}

func (e *Env) observe(stats *Stats) {
	if e.Observer != nil {
		e.Observer.ObserveSync(stats)
	}
}

type nopProgress struct{}

func (nopProgress) Started(string, int) {}
func (nopProgress) Step(string)         {}
func (nopProgress) StepCompleted()      {}
func (nopProgress) Finished(string)     {}
