// Package corpus keeps the running document counts used for inverse document
// frequency. Counters only grow during a run.
package corpus

import "sync"

// Prior is a read of the corpus taken before a document was folded in.
type Prior struct {
	Documents int
	Frequency map[string]int
}

// Statistics is owned by a single crawl run and safe for concurrent use.
type Statistics struct {
	mu        sync.Mutex
	documents int
	frequency map[string]int
}

// New returns empty statistics.
func New() *Statistics {
	return &Statistics{frequency: make(map[string]int)}
}

// Fold reads the counts for terms and then records one more document
// containing each distinct term, all under one lock. It returns the counts
// as they stood before the update and the 1-based ordinal of the document.
func (s *Statistics) Fold(terms []string) (Prior, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior := Prior{
		Documents: s.documents,
		Frequency: make(map[string]int, len(terms)),
	}
	for _, term := range terms {
		if _, ok := prior.Frequency[term]; ok {
			continue
		}
		prior.Frequency[term] = s.frequency[term]
	}
	for term := range prior.Frequency {
		s.frequency[term]++
	}
	s.documents++
	return prior, s.documents
}

// Documents returns the number of documents folded in so far.
func (s *Statistics) Documents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents
}

// Vocabulary returns the number of distinct terms seen.
func (s *Statistics) Vocabulary() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frequency)
}
