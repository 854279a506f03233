package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/klauern/feedsync/internal/cache"
	"github.com/klauern/feedsync/internal/config"
	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/metrics"
	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/progress"
	"github.com/klauern/feedsync/internal/refresh"
	"github.com/klauern/feedsync/internal/security"
	"github.com/klauern/feedsync/internal/service"
	"github.com/klauern/feedsync/internal/sync"
	"github.com/klauern/feedsync/internal/ui"
)

func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "restore",
			Usage: "Make the local layout an exact copy of the service layout",
		},
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Add incoming feeds without asking",
		},
		&cli.BoolFlag{
			Name:  "no-feeds",
			Usage: "Skip guides and feeds",
		},
		&cli.BoolFlag{
			Name:  "no-prefs",
			Usage: "Skip preferences",
		},
		&cli.BoolFlag{
			Name:  "no-ping",
			Usage: "Do not notify the service about published guides",
		},
		&cli.BoolFlag{
			Name:  "no-refresh",
			Usage: "Do not fetch the content of newly added feeds",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write Prometheus metrics of the run to this file",
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Synchronize guides, feeds and preferences with the service",
		UsageText: "feedsync sync [in|out|full] [options]",
		Description: `Synchronize the local guides with the sync service.

   in    loads the service state into the local guides
   out   stores the local guides on the service
   full  runs in and, when it succeeds, out (default)

   Examples:
     feedsync sync
     feedsync sync in --restore
     feedsync sync out --no-prefs`,
		Flags: syncFlags(),
		Commands: []*cli.Command{
			{
				Name:  "in",
				Usage: "Load the service state into the local guides",
				Flags: syncFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSync(ctx, cmd, sync.DirectionIn)
				},
			},
			{
				Name:  "out",
				Usage: "Store the local guides on the service",
				Flags: syncFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSync(ctx, cmd, sync.DirectionOut)
				},
			},
			{
				Name:  "full",
				Usage: "Synchronize in both directions",
				Flags: syncFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSync(ctx, cmd, sync.DirectionFull)
				},
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runSync(ctx, cmd, sync.DirectionFull)
		},
	}
}

// syncOptions builds the run options from the configuration and flags.
func syncOptions(cmd *cli.Command, cfg *config.Config) sync.Options {
	opts := sync.DefaultOptions()
	opts.Credentials = service.Credentials{Email: cfg.Service.Email, Password: cfg.Service.Password}
	opts.SyncFeeds = cfg.Sync.Feeds && !cmd.Bool("no-feeds")
	opts.SyncPreferences = cfg.Sync.Preferences && !cmd.Bool("no-prefs")
	opts.PingPublished = cfg.Sync.PingPublished && !cmd.Bool("no-ping")
	if cmd.Bool("restore") || cfg.Sync.CopyServiceLayout {
		opts.Mode = sync.ModeRestore
	}
	return opts
}

func newClient(cfg *config.Config) (*service.HTTPClient, error) {
	return service.NewHTTPClient(cfg.Service.URL, cfg.Service.Timeout, service.WithLogger(logging.Default()))
}

// runner is what every direction has in common.
type runner interface {
	Run(ctx context.Context) *sync.Stats
	WaitPings()
}

// inRunner adapts SyncIn, which never pings.
type inRunner struct{ *sync.SyncIn }

func (inRunner) WaitPings() {}

func newRunner(d sync.Direction, env *sync.Env, opts sync.Options) runner {
	switch d {
	case sync.DirectionIn:
		return inRunner{sync.NewSyncIn(env, opts)}
	case sync.DirectionOut:
		return sync.NewSyncOut(env, opts)
	default:
		return sync.NewSyncFull(env, opts)
	}
}

func runSync(ctx context.Context, cmd *cli.Command, direction sync.Direction) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyColorMode(cmd, cfg)

	opts := syncOptions(cmd, cfg)
	if !opts.SyncFeeds && !opts.SyncPreferences {
		return errors.New("nothing to synchronize: both feeds and preferences are disabled")
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(cfg)
	if err != nil {
		return err
	}
	defer closeWorkspace(ws, &err)

	logger := logging.Default()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	sanitizer := security.NewSanitizer()

	env := &sync.Env{
		Local:      ws.local,
		Client:     client,
		Tombstones: ws.tombstones,
		State:      ws.state,
		Confirmer:  chooseConfirmer(cmd.Bool("yes"), cfg.Sync.Confirm),
		Progress:   barListener{progress.NewListener(os.Stderr)},
		Saver:      ws.file,
		Observer:   collector,
		Sanitizer:  sanitizer,
		Logger:     logger,
	}

	var (
		scheduler *refresh.Scheduler
		feedCache *cache.Cache
	)
	if cfg.Refresh.Enabled && !cmd.Bool("no-refresh") && direction != sync.DirectionOut {
		feedCache, err = cache.New("feeds", "")
		if err != nil {
			logger.Warn("feed cache unavailable", logging.Err(err))
			feedCache = cache.NewMemory()
		}
		scheduler = newScheduler(cfg, ws.local, collector, refresh.NewFetcher(refreshClient(cfg), feedCache, sanitizer))
		scheduler.Start(ctx)
		env.Refresher = scheduler
	}

	if direction != sync.DirectionOut && opts.SyncPreferences {
		ws.backupState()
	}

	r := newRunner(direction, env, opts)
	stats := r.Run(ctx)
	r.WaitPings()

	if scheduler != nil {
		scheduler.Stop()
		if feedCache.Size() > 0 {
			feedCache.Prune(cache.DefaultTTL)
		}
		if err := feedCache.Save(); err != nil {
			logger.Warn("failed to save feed cache", logging.Err(err))
		}
		if stats.AddedFeeds > 0 {
			if err := ws.save(); err != nil {
				logger.Warn("failed to save refreshed feeds", logging.Err(err))
			}
		}
	}

	if direction != sync.DirectionOut && !stats.Failed {
		if deleted := ws.cleanupBackups(); len(deleted) > 0 {
			logger.Info("removed old backups", logging.Count(len(deleted)))
		}
	}

	if path := cmd.String("metrics-file"); path != "" {
		if err := metrics.WriteFile(path, registry); err != nil {
			logger.Warn("failed to write metrics", logging.Path(path), logging.Err(err))
		}
	}

	return reportStats(stats)
}

// refreshClient returns the HTTP client feed refreshes go through. Private
// addresses are refused unless the configuration allows them.
func refreshClient(cfg *config.Config) *http.Client {
	if cfg.Refresh.AllowPrivate {
		return &http.Client{Timeout: cfg.Refresh.Timeout}
	}
	return refresh.NewSafeClient(cfg.Refresh.Timeout)
}

func newScheduler(cfg *config.Config, local *model.Hierarchy, observer refresh.Observer, fetcher *refresh.Fetcher) *refresh.Scheduler {
	return refresh.NewScheduler(local, refresh.Options{
		Workers:      cfg.Refresh.Workers,
		Rate:         cfg.Refresh.Rate,
		Burst:        cfg.Refresh.Burst,
		Timeout:      cfg.Refresh.Timeout,
		AllowPrivate: cfg.Refresh.AllowPrivate,
	},
		refresh.WithFetcher(fetcher),
		refresh.WithLogger(logging.Default()),
		refresh.WithObserver(observer),
	)
}

// reportStats prints one line per direction. A failed direction becomes
// the command error.
func reportStats(stats *sync.Stats) error {
	parts := stats.Parts()
	if len(parts) == 0 {
		parts = []*sync.Stats{stats}
	}
	for _, p := range parts {
		if p.Failed {
			return errors.New(p.Text())
		}
		fmt.Println(ui.Outcome(false, p.Cancelled, p.Text()))
	}
	if d := stats.Duration(); d > 0 {
		fmt.Println(ui.Dim(fmt.Sprintf("Finished in %s", d.Round(time.Millisecond))))
	}
	return nil
}

// barListener draws the progress bar but leaves the summary to the
// command.
type barListener struct {
	*progress.Listener
}

func (b barListener) Finished(string) {
	b.Listener.Finished("")
}

func diffCommand() *cli.Command {
	return &cli.Command{
		Name:  "diff",
		Usage: "Show what a sync in would change, without changing anything",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "restore",
				Usage: "Compare as if the service layout were authoritative",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) (err error) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			applyColorMode(cmd, cfg)

			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			ws, err := openWorkspace(cfg)
			if err != nil {
				return err
			}
			defer closeWorkspace(ws, &err)

			opts := syncOptions(cmd, cfg)
			remote, err := client.FetchSnapshot(ctx, opts.Credentials)
			if err != nil {
				return errors.New(sync.UserMessage(err))
			}

			var changes *sync.Changes
			var evalErr error
			ws.local.View(func(h *model.Hierarchy) {
				changes, evalErr = sync.Evaluate(ctx, h, remote, sync.EvaluateOptions{
					Mode:       opts.Mode,
					Tombstones: ws.tombstones,
				})
			})
			if evalErr != nil {
				return evalErr
			}

			fmt.Printf("%s (%s)\n", ui.Header("Changes from the service"), opts.Mode.Description())
			fmt.Print(changes.Summary())
			return nil
		},
	}
}
