// Package frontier holds the breadth-first queue of URLs awaiting a visit.
//
// The frontier is batch-per-level: links discovered while level k is being
// processed are appended to the open level k+1, which is sealed and handed
// out by the next call to NextLevel. A URL enters at most one level because
// every enqueue reserves it in the dedup tracker first.
package frontier

import (
	"sync"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
	"github.com/JakeFAU/keyword-crawler/internal/dedup"
)

// Reserver claims a URL for a single future visit.
type Reserver interface {
	TryReserve(url string) bool
}

// Entry is one URL queued in a level.
type Entry struct {
	URL      string
	Source   string
	Level    int
	Position int
}

// Level is a sealed BFS generation in discovery order.
type Level struct {
	Index   int
	Entries []Entry
}

// Frontier is safe for concurrent use.
type Frontier struct {
	mu       sync.Mutex
	tracker  Reserver
	open     []Entry
	next     int
	pending  int
	accepted int
}

// New returns an empty frontier that reserves through tracker. A nil tracker
// gets a fresh in-memory one.
func New(tracker Reserver) *Frontier {
	if tracker == nil {
		tracker = dedup.New()
	}
	return &Frontier{tracker: tracker}
}

// Seed enqueues urls into the current open level with no source and returns
// how many were accepted.
func (f *Frontier) Seed(urls []string) int {
	added := 0
	for _, u := range urls {
		if f.Enqueue(u, "") {
			added++
		}
	}
	return added
}

// Enqueue normalizes url and appends it to the open level if it is an
// absolute http(s) URL the tracker has not seen. It reports whether the URL
// was queued.
func (f *Frontier) Enqueue(url, source string) bool {
	if !crawler.IsCrawlable(url) {
		return false
	}
	normalized, err := crawler.NormalizeURL(url)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tracker.TryReserve(normalized) {
		return false
	}
	f.open = append(f.open, Entry{
		URL:      normalized,
		Source:   source,
		Level:    f.next,
		Position: len(f.open),
	})
	f.pending++
	f.accepted++
	return true
}

// NextLevel seals the open level and returns it. A fresh open level is
// started for links discovered while the returned level is processed. The
// second return is false once nothing is queued.
func (f *Frontier) NextLevel() (Level, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.open) == 0 {
		return Level{}, false
	}
	lvl := Level{Index: f.next, Entries: f.open}
	f.open = nil
	f.next++
	f.pending -= len(lvl.Entries)
	return lvl, true
}

// Depth returns how many levels have been handed out.
func (f *Frontier) Depth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next
}

// Pending returns the number of URLs in the open level.
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// Accepted returns the total number of URLs ever queued.
func (f *Frontier) Accepted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accepted
}
