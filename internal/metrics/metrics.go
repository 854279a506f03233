// Package metrics exposes Prometheus metrics for sync runs and feed
// refreshes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/klauern/feedsync/internal/refresh"
	"github.com/klauern/feedsync/internal/sync"
)

// Collector records sync and refresh metrics. It implements sync.Observer
// and refresh.Observer.
type Collector struct {
	syncRuns     *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
	feedChanges  *prometheus.CounterVec
	lastSuccess  *prometheus.GaugeVec
	fetches      *prometheus.CounterVec
	fetchLatency prometheus.Histogram
}

var (
	_ sync.Observer    = (*Collector)(nil)
	_ refresh.Observer = (*Collector)(nil)
)

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_sync_runs_total",
			Help: "Sync runs by direction and result.",
		}, []string{"direction", "result"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedsync_sync_duration_seconds",
			Help:    "Wall time of sync runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"direction"}),
		feedChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_feed_changes_total",
			Help: "Feeds touched by sync runs, by kind of change.",
		}, []string{"change"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "feedsync_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per direction.",
		}, []string{"direction"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedsync_refresh_fetches_total",
			Help: "Feed refresh fetches by outcome.",
		}, []string{"outcome"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedsync_refresh_fetch_latency_seconds",
			Help:    "Latency of feed refresh fetches.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.syncRuns,
		c.syncDuration,
		c.feedChanges,
		c.lastSuccess,
		c.fetches,
		c.fetchLatency,
	)
	return c
}

// ObserveSync records a finished direction. Full runs are recorded through
// their parts, so callers may pass either.
func (c *Collector) ObserveSync(s *sync.Stats) {
	if parts := s.Parts(); len(parts) > 0 {
		for _, p := range parts {
			c.ObserveSync(p)
		}
		return
	}

	direction := string(s.Direction)
	result := "success"
	switch {
	case s.Failed:
		result = "failure"
	case s.Cancelled:
		result = "cancelled"
	}
	c.syncRuns.WithLabelValues(direction, result).Inc()
	c.syncDuration.WithLabelValues(direction).Observe(s.Duration().Seconds())
	if !s.Failed {
		c.lastSuccess.WithLabelValues(direction).Set(float64(s.End.Unix()))
	}

	c.feedChanges.WithLabelValues("added").Add(float64(s.AddedFeeds))
	c.feedChanges.WithLabelValues("removed").Add(float64(s.RemovedFeeds))
	c.feedChanges.WithLabelValues("updated").Add(float64(s.UpdatedFeeds))
	c.feedChanges.WithLabelValues("saved").Add(float64(s.SavedFeeds))
}

// ObserveFetch records a refresh fetch.
func (c *Collector) ObserveFetch(outcome refresh.Outcome, d time.Duration) {
	c.fetches.WithLabelValues(string(outcome)).Inc()
	if outcome != refresh.OutcomeDropped {
		c.fetchLatency.Observe(d.Seconds())
	}
}

// Handler returns the HTTP handler serving gatherer in the Prometheus text
// format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// WriteFile writes the metrics of gatherer to path in the node_exporter
// textfile format.
func WriteFile(path string, gatherer prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, gatherer)
}
