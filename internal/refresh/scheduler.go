package refresh

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/klauern/feedsync/internal/logging"
	"github.com/klauern/feedsync/internal/model"
)

// Outcome labels a finished fetch.
type Outcome string

const (
	OutcomeUpdated     Outcome = "updated"
	OutcomeNotModified Outcome = "not_modified"
	OutcomeFailed      Outcome = "failed"
	OutcomeDropped     Outcome = "dropped"
)

// Observer is told about every fetch the scheduler finishes.
type Observer interface {
	ObserveFetch(outcome Outcome, d time.Duration)
}

// Options configure a Scheduler.
type Options struct {
	Workers   int
	QueueSize int
	// Rate is the number of fetches per second across all workers.
	Rate    float64
	Burst   int
	Timeout time.Duration
	// AllowPrivate disables the SSRF guard. Only meant for local testing.
	AllowPrivate bool
}

// DefaultOptions returns conservative scheduler settings.
func DefaultOptions() Options {
	return Options{
		Workers:   4,
		QueueSize: 256,
		Rate:      2,
		Burst:     4,
		Timeout:   30 * time.Second,
	}
}

type job struct {
	id  string
	url string
}

// Scheduler runs a fixed pool of workers fed by a buffered queue. Feeds can
// be scheduled before Start; they wait in the queue.
type Scheduler struct {
	local    *model.Hierarchy
	fetcher  *Fetcher
	limiter  *rate.Limiter
	logger   *slog.Logger
	observer Observer
	workers  int
	clock    func() time.Time

	queue chan job
	wg    sync.WaitGroup

	mu      sync.Mutex
	pending map[string]struct{}
	started bool
	closed  bool
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithFetcher replaces the default fetcher.
func WithFetcher(f *Fetcher) Option {
	return func(s *Scheduler) { s.fetcher = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithObserver reports fetch outcomes to o.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// WithClock overrides the time source used for poll timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// NewScheduler creates a scheduler writing its results into local.
func NewScheduler(local *model.Hierarchy, opts Options, options ...Option) *Scheduler {
	def := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = def.QueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	s := &Scheduler{
		local:   local,
		limiter: rate.NewLimiter(limit, opts.Burst),
		logger:  logging.Default(),
		workers: opts.Workers,
		clock:   time.Now,
		queue:   make(chan job, opts.QueueSize),
		pending: make(map[string]struct{}),
	}
	for _, o := range options {
		o(s)
	}
	if s.fetcher == nil {
		var client *http.Client
		if opts.AllowPrivate {
			client = &http.Client{Timeout: opts.Timeout}
		} else {
			client = NewSafeClient(opts.Timeout)
		}
		s.fetcher = NewFetcher(client, nil, nil)
	}
	return s
}

// Schedule queues a content refresh for f. It never blocks: when the queue
// is full or the scheduler is stopped the request is dropped. Feeds already
// waiting are not queued twice.
func (s *Scheduler) Schedule(f *model.DirectFeed) {
	if f == nil || f.XMLURL == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.pending[f.ID]; ok {
		return
	}
	select {
	case s.queue <- job{id: f.ID, url: f.XMLURL}:
		s.pending[f.ID] = struct{}{}
	default:
		s.logger.Warn("refresh queue full, dropping feed", logging.URL(f.XMLURL))
		s.observe(OutcomeDropped, 0)
	}
}

// Start launches the workers. They stop when ctx is cancelled or Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	for range s.workers {
		s.wg.Add(1)
		go s.work(ctx)
	}
}

// Stop closes the queue and waits for the workers to finish what is already
// queued.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Pending returns the number of feeds waiting or in flight.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) work(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-s.queue:
			if !ok {
				return
			}
			s.refresh(ctx, j)
			s.mu.Lock()
			delete(s.pending, j.id)
			s.mu.Unlock()
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context, j job) {
	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	start := s.clock()
	result, err := s.fetcher.Fetch(ctx, j.url)
	elapsed := s.clock().Sub(start)
	if err != nil {
		s.logger.Warn("feed refresh failed", logging.URL(j.url), logging.Err(err))
		s.observe(OutcomeFailed, elapsed)
		return
	}

	_ = s.local.Update(func(h *model.Hierarchy) error {
		d, ok := h.FindFeedByID(j.id).(*model.DirectFeed)
		if !ok {
			return nil
		}
		apply(d, result, s.clock().UnixMilli())
		return nil
	})

	outcome := OutcomeUpdated
	if result.NotModified {
		outcome = OutcomeNotModified
	}
	s.logger.Debug("feed refreshed", logging.URL(j.url), slog.String("outcome", string(outcome)), logging.Count(result.Items))
	s.observe(outcome, elapsed)
}

// apply records a fetch result. Only fields the user cannot have set are
// touched so a refresh never produces a sync conflict.
func apply(d *model.DirectFeed, r *Result, now int64) {
	d.LastPollTime = now
	if r.Title != "" && (d.Title == "" || d.Title == d.XMLURL) {
		d.Title = r.Title
	}
	if r.Podcast && d.Type == model.FeedTypeText {
		d.Type = model.FeedTypePodcast
	}
}

func (s *Scheduler) observe(o Outcome, d time.Duration) {
	if s.observer != nil {
		s.observer.ObserveFetch(o, d)
	}
}
