package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/klauern/feedsync/internal/model"
	"github.com/klauern/feedsync/internal/service"
)

func feedAt(url string, updated int64) *model.DirectFeed {
	f := model.NewDirectFeed(url, url)
	f.LastUpdateTime = updated
	return f
}

func guideWith(title string, lastSync int64, feeds ...model.Feed) *model.Guide {
	g := model.NewGuide(title)
	for _, f := range feeds {
		g.Link(f, lastSync)
	}
	return g
}

func urls(feeds []model.Feed) []string {
	var out []string
	for _, f := range feeds {
		if d, ok := f.(*model.DirectFeed); ok {
			out = append(out, d.XMLURL)
		}
	}
	return out
}

func addedURLs(c *Changes) []string {
	var out []string
	for _, a := range c.AddFeeds {
		out = append(out, a.Feed.(*model.DirectFeed).XMLURL)
	}
	return out
}

type fakeClient struct {
	mu gosync.Mutex

	remote   *model.Document
	fetchErr error
	pushErr  error
	prefs    map[string][]byte
	prefsErr error
	pingErr  map[string]error
	userID   string

	fetches int
	pushed  []*model.Document
	putPref []map[string][]byte
	pinged  []string
}

func newFakeClient(remote *model.Hierarchy) *fakeClient {
	c := &fakeClient{userID: "user-1", pingErr: map[string]error{}}
	if remote != nil {
		c.remote = model.Export(remote)
	}
	return c
}

func (c *fakeClient) FetchSnapshot(context.Context, service.Credentials) (*model.Hierarchy, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches++
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	if c.remote == nil {
		return model.NewHierarchy(), nil
	}
	return model.Import(c.remote)
}

func (c *fakeClient) PushSnapshot(_ context.Context, _ service.Credentials, doc *model.Document) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pushErr != nil {
		return "", c.pushErr
	}
	c.pushed = append(c.pushed, doc)
	return c.userID, nil
}

func (c *fakeClient) GetPreferences(context.Context, service.Credentials) (map[string][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefs, c.prefsErr
}

func (c *fakeClient) PutPreferences(_ context.Context, _ service.Credentials, prefs map[string][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putPref = append(c.putPref, prefs)
	return nil
}

func (c *fakeClient) PingGuide(_ context.Context, _ string, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinged = append(c.pinged, title)
	return c.pingErr[title]
}

type recordingRefresher struct {
	scheduled []*model.DirectFeed
}

func (r *recordingRefresher) Schedule(f *model.DirectFeed) {
	r.scheduled = append(r.scheduled, f)
}

type recordingProgress struct {
	started  int
	steps    []string
	finished []string
}

func (p *recordingProgress) Started(string, int) { p.started++ }
func (p *recordingProgress) Step(label string)   { p.steps = append(p.steps, label) }
func (p *recordingProgress) StepCompleted()      {}
func (p *recordingProgress) Finished(s string)   { p.finished = append(p.finished, s) }

func fixedClock() func() time.Time {
	t := time.UnixMilli(1_700_000_000_000)
	return func() time.Time { return t }
}
