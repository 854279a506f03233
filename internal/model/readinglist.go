package model

// ReadingList is a URL-addressed list of direct feeds attached to one guide.
// Membership is non-owning: a feed stays alive while any guide links it.
type ReadingList struct {
	URL          string
	Title        string
	LastSyncTime int64

	guide *Guide
	feeds []*DirectFeed
}

// NewReadingList creates a reading list shell that has never been synced out.
func NewReadingList(url, title string) *ReadingList {
	return &ReadingList{URL: url, Title: title, LastSyncTime: Never}
}

// Guide returns the owning guide, or nil when the list is detached.
func (rl *ReadingList) Guide() *Guide { return rl.guide }

// Feeds returns the member feeds in insertion order.
func (rl *ReadingList) Feeds() []*DirectFeed {
	out := make([]*DirectFeed, len(rl.feeds))
	copy(out, rl.feeds)
	return out
}

// Contains reports whether f is a member of the list.
func (rl *ReadingList) Contains(f *DirectFeed) bool {
	for _, existing := range rl.feeds {
		if existing == f {
			return true
		}
	}
	return false
}

// Add makes f a member of the list.
func (rl *ReadingList) Add(f *DirectFeed) {
	if rl.Contains(f) {
		return
	}
	rl.feeds = append(rl.feeds, f)
	f.addReadingList(rl)
}

// Remove drops f from the list.
func (rl *ReadingList) Remove(f *DirectFeed) {
	for i, existing := range rl.feeds {
		if existing == f {
			rl.feeds = append(rl.feeds[:i], rl.feeds[i+1:]...)
			f.removeReadingList(rl)
			return
		}
	}
}
