// Package file appends crawl records to a JSON lines file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// Sink writes one JSON object per line.
type Sink struct {
	mu   sync.Mutex
	path string
	f    *os.File
	enc  *json.Encoder
}

// Open creates path and its parent directory if needed and appends to it.
func Open(path string) (*Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("sink.path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create sink dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open sink file %s: %w", path, err)
	}
	return &Sink{path: path, f: f, enc: json.NewEncoder(f)}, nil
}

// Insert appends record as a single line.
func (s *Sink) Insert(ctx context.Context, record crawler.Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("file sink %s is closed", s.path)
	}
	if err := s.enc.Encode(record); err != nil {
		return fmt.Errorf("write record to %s: %w", s.path, err)
	}
	return nil
}

// Close flushes and closes the file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	if err != nil {
		return fmt.Errorf("close sink file %s: %w", s.path, err)
	}
	return nil
}
