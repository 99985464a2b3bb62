// Package memory keeps crawl records in process memory for tests and dry runs.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// ErrInjected is returned for URLs configured to fail.
var ErrInjected = errors.New("injected sink failure")

// Sink stores records in insertion order.
type Sink struct {
	mu      sync.RWMutex
	records []crawler.Record
	failFor map[string]struct{}
}

// New returns an empty sink.
func New() *Sink {
	return &Sink{failFor: make(map[string]struct{})}
}

// FailFor makes later inserts for url return ErrInjected.
func (s *Sink) FailFor(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFor[url] = struct{}{}
}

// Insert stores record.
func (s *Sink) Insert(_ context.Context, record crawler.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.failFor[record.URL]; ok {
		return ErrInjected
	}
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of everything stored.
func (s *Sink) Records() []crawler.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]crawler.Record(nil), s.records...)
}

// Len returns the number of stored records.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
