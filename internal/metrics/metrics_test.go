package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/klauern/feedsync/internal/refresh"
	"github.com/klauern/feedsync/internal/sync"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestObserveSync(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	start := time.Unix(100, 0)

	in := &sync.Stats{Direction: sync.DirectionIn, AddedFeeds: 3, Start: start, End: start.Add(time.Second)}
	out := &sync.Stats{Direction: sync.DirectionOut, Failed: true, Start: start, End: start.Add(time.Second)}
	c.ObserveSync(sync.Combine(in, out))

	tests := map[string]struct {
		name   string
		labels map[string]string
		want   float64
	}{
		"successful in": {
			name:   "feedsync_sync_runs_total",
			labels: map[string]string{"direction": "in", "result": "success"},
			want:   1,
		},
		"failed out": {
			name:   "feedsync_sync_runs_total",
			labels: map[string]string{"direction": "out", "result": "failure"},
			want:   1,
		},
		"added feeds": {
			name:   "feedsync_feed_changes_total",
			labels: map[string]string{"change": "added"},
			want:   3,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := counterValue(t, reg, tt.name, tt.labels); got != tt.want {
				t.Errorf("%s%v = %v, want %v", tt.name, tt.labels, got, tt.want)
			}
		})
	}
}

func TestObserveFetch(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveFetch(refresh.OutcomeUpdated, 10*time.Millisecond)
	c.ObserveFetch(refresh.OutcomeUpdated, 20*time.Millisecond)
	c.ObserveFetch(refresh.OutcomeDropped, 0)

	if got := counterValue(t, reg, "feedsync_refresh_fetches_total", map[string]string{"outcome": "updated"}); got != 2 {
		t.Errorf("updated fetches = %v, want 2", got)
	}
	if got := counterValue(t, reg, "feedsync_refresh_fetches_total", map[string]string{"outcome": "dropped"}); got != 1 {
		t.Errorf("dropped fetches = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveFetch(refresh.OutcomeFailed, time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `feedsync_refresh_fetches_total{outcome="failed"} 1`) {
		t.Errorf("metrics output missing fetch counter:\n%s", body)
	}
}

func TestWriteFile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveSync(&sync.Stats{Direction: sync.DirectionOut, SavedFeeds: 2})

	path := filepath.Join(t.TempDir(), "feedsync.prom")
	if err := WriteFile(path, reg); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read metrics file: %v", err)
	}
	if !strings.Contains(string(data), "feedsync_sync_runs_total") {
		t.Errorf("metrics file missing sync counter:\n%s", data)
	}
}
