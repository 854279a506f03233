package model

import "sync"

// Hierarchy is the root container of guides. Mutations must happen inside
// Update, which holds a coarse lock for the duration of fn; the accessor
// methods themselves are unsynchronised.
type Hierarchy struct {
	mu     sync.Mutex
	guides []*Guide
}

// NewHierarchy creates a hierarchy holding the given guides.
func NewHierarchy(guides ...*Guide) *Hierarchy {
	return &Hierarchy{guides: guides}
}

// Update runs fn while holding the hierarchy lock.
func (h *Hierarchy) Update(fn func(*Hierarchy) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h)
}

// View runs fn while holding the hierarchy lock. It exists so read-only
// callers state their intent.
func (h *Hierarchy) View(fn func(*Hierarchy)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h)
}

// Guides returns the guides in insertion order.
func (h *Hierarchy) Guides() []*Guide {
	out := make([]*Guide, len(h.guides))
	copy(out, h.guides)
	return out
}

// FindGuide returns the first guide whose title equals title exactly.
func (h *Hierarchy) FindGuide(title string) *Guide {
	for _, g := range h.guides {
		if g.Title == title {
			return g
		}
	}
	return nil
}

// DuplicateTitles returns every guide title used by more than one guide, in
// first-seen order.
func (h *Hierarchy) DuplicateTitles() []string {
	seen := make(map[string]int, len(h.guides))
	var dups []string
	for _, g := range h.guides {
		seen[g.Title]++
		if seen[g.Title] == 2 {
			dups = append(dups, g.Title)
		}
	}
	return dups
}

// AddGuide appends g to the hierarchy.
func (h *Hierarchy) AddGuide(g *Guide) {
	for _, existing := range h.guides {
		if existing == g {
			return
		}
	}
	h.guides = append(h.guides, g)
}

// RemoveGuide removes g and unlinks all its feeds and reading lists.
func (h *Hierarchy) RemoveGuide(g *Guide) bool {
	for i, existing := range h.guides {
		if existing != g {
			continue
		}
		h.guides = append(h.guides[:i], h.guides[i+1:]...)
		for _, rl := range g.ReadingLists() {
			g.RemoveReadingList(rl)
		}
		for _, f := range g.AllFeeds() {
			g.Unlink(f)
		}
		return true
	}
	return false
}

// Feeds returns every distinct feed reachable from the hierarchy, through
// guide links or reading lists, in discovery order.
func (h *Hierarchy) Feeds() []Feed {
	seen := make(map[Feed]struct{})
	var out []Feed
	add := func(f Feed) {
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	for _, g := range h.guides {
		for _, f := range g.AllFeeds() {
			add(f)
		}
		for _, rl := range g.readingLists {
			for _, f := range rl.feeds {
				add(f)
			}
		}
	}
	return out
}

// DirectFeeds returns every distinct direct feed in the hierarchy.
func (h *Hierarchy) DirectFeeds() []*DirectFeed {
	var out []*DirectFeed
	for _, f := range h.Feeds() {
		if d, ok := f.(*DirectFeed); ok {
			out = append(out, d)
		}
	}
	return out
}

// FindFeedByID returns the feed with the given identifier.
func (h *Hierarchy) FindFeedByID(id string) Feed {
	for _, f := range h.Feeds() {
		if f.Base().ID == id {
			return f
		}
	}
	return nil
}

// ReadingListCount returns the number of reading lists across all guides.
func (h *Hierarchy) ReadingListCount() int {
	n := 0
	for _, g := range h.guides {
		n += len(g.readingLists)
	}
	return n
}
