package crawler

import "context"

// Fetcher retrieves a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (FetchResponse, error)
}

// Extractor parses an HTML body into text, title, headings and outbound links.
type Extractor interface {
	Extract(body []byte) (Extraction, error)
}

// Classifier tags plain text into an ordered token stream.
type Classifier interface {
	Tag(ctx context.Context, text string) ([]Token, error)
}

// Sink persists one record per processed document.
type Sink interface {
	Insert(ctx context.Context, record Record) error
}
