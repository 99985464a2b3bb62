// Package crawler defines the shared vocabulary of the keyword crawler: the
// capability interfaces the engine consumes (fetcher, extractor, classifier,
// sink), the per-URL lifecycle states, the error taxonomy, and URL
// normalization used for deduplication.
package crawler
