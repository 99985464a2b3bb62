// Package metrics exposes Prometheus collectors for the keyword crawler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sink insert outcomes.
const (
	SinkResultOK    = "ok"
	SinkResultError = "error"
)

var (
	pagesTotal                 *prometheus.CounterVec
	linksDiscoveredTotal       prometheus.Counter
	sinkInsertsTotal           *prometheus.CounterVec
	frontierLevel              prometheus.Gauge
	corpusDocuments            prometheus.Gauge
	fetchDurationSeconds       prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kwcrawler_pages_total",
				Help: "Total number of URLs reaching a terminal state, labeled by state.",
			},
			[]string{"state"},
		)

		linksDiscoveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kwcrawler_links_discovered_total",
				Help: "Total number of new links accepted into the frontier.",
			},
		)

		sinkInsertsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kwcrawler_sink_inserts_total",
				Help: "Total number of sink inserts, labeled by result.",
			},
			[]string{"result"},
		)

		frontierLevel = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kwcrawler_frontier_level",
				Help: "Index of the BFS level currently being processed.",
			},
		)

		corpusDocuments = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kwcrawler_corpus_documents",
				Help: "Number of documents folded into corpus statistics.",
			},
		)

		fetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kwcrawler_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kwcrawler_http_requests_total",
				Help: "Total number of status API requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kwcrawler_http_request_duration_seconds",
				Help:    "Histogram of status API latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts a URL that reached a terminal state.
func ObservePage(state string) {
	Init()
	pagesTotal.WithLabelValues(state).Inc()
}

// ObserveLinksDiscovered adds n newly queued links.
func ObserveLinksDiscovered(n int) {
	Init()
	if n > 0 {
		linksDiscoveredTotal.Add(float64(n))
	}
}

// ObserveSinkInsert counts one insert outcome.
func ObserveSinkInsert(result string) {
	Init()
	sinkInsertsTotal.WithLabelValues(result).Inc()
}

// SetFrontierLevel records the level being processed.
func SetFrontierLevel(level int) {
	Init()
	frontierLevel.Set(float64(level))
}

// SetCorpusDocuments records the corpus size.
func SetCorpusDocuments(n int) {
	Init()
	corpusDocuments.Set(float64(n))
}

// ObserveFetchDuration records one fetch latency.
func ObserveFetchDuration(d time.Duration) {
	Init()
	fetchDurationSeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
