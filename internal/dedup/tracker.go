// Package dedup records which URLs a crawl has already claimed so that no
// URL is fetched twice within a run.
package dedup

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

type entryState uint8

const (
	stateReserved entryState = iota + 1
	stateVisited
)

// Tracker is safe for concurrent use. The map is authoritative; the optional
// bloom filter only short-circuits lookups for URLs that are certainly new.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]entryState
	visited int
	filter  *bloom.BloomFilter
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithBloom enables a bloom prefilter sized for capacity items at the given
// false positive rate. A zero capacity leaves the prefilter disabled.
func WithBloom(capacity uint, fpRate float64) Option {
	return func(t *Tracker) {
		if capacity == 0 {
			return
		}
		if fpRate <= 0 || fpRate >= 1 {
			fpRate = 0.01
		}
		t.filter = bloom.NewWithEstimates(capacity, fpRate)
	}
}

// New returns an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{entries: make(map[string]entryState)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TryReserve claims url for a future visit. It returns false if url was
// already reserved or visited.
func (t *Tracker) TryReserve(url string) bool {
	if url == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.known(url) {
		return false
	}
	t.entries[url] = stateReserved
	t.remember(url)
	return true
}

// TryVisit marks url as visited. It succeeds for a reserved URL or one never
// seen before, and fails if url has already been visited.
func (t *Tracker) TryVisit(url string) bool {
	if url == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries[url] == stateVisited {
		return false
	}
	if _, ok := t.entries[url]; !ok {
		t.remember(url)
	}
	t.entries[url] = stateVisited
	t.visited++
	return true
}

// Len returns the number of URLs reserved or visited.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Visited returns the number of URLs marked visited.
func (t *Tracker) Visited() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visited
}

func (t *Tracker) known(url string) bool {
	if t.filter != nil && !t.filter.TestString(url) {
		return false
	}
	_, ok := t.entries[url]
	return ok
}

func (t *Tracker) remember(url string) {
	if t.filter != nil {
		t.filter.AddString(url)
	}
}
