package crawler

import (
	"errors"
	"fmt"
)

// Error classes for per-URL failures. None of them stops a crawl.
var (
	ErrFetch      = errors.New("fetch failed")
	ErrExtraction = errors.New("extraction failed")
	ErrSink       = errors.New("sink insert failed")
)

// ErrInvalidRecord marks a record a sink can never store as given.
var ErrInvalidRecord = errors.New("invalid record")

// URLError attaches the URL and lifecycle stage to a failure.
type URLError struct {
	URL   string
	Stage URLState
	Err   error
}

func (e *URLError) Error() string {
	return fmt.Sprintf("%s at %s: %v", e.URL, e.Stage, e.Err)
}

func (e *URLError) Unwrap() error {
	return e.Err
}

// IsFetchFailure reports whether err puts a URL into FETCH_FAILED.
// Extraction errors are treated the same as fetch errors.
func IsFetchFailure(err error) bool {
	return errors.Is(err, ErrFetch) || errors.Is(err, ErrExtraction)
}
