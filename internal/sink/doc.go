// Package sink groups the crawler.Sink implementations. Each subpackage
// persists one crawler.Record per processed page.
package sink
