// Package engine drives a breadth-first keyword crawl.
//
// Each level is processed in two phases. Fetch, extract and classify run
// concurrently with bounded parallelism. Filtering, scoring, emission and
// link discovery then run one page at a time in discovery order, so corpus
// ordinals and scores do not depend on network timing.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/keyword-crawler/internal/corpus"
	"github.com/JakeFAU/keyword-crawler/internal/crawler"
	"github.com/JakeFAU/keyword-crawler/internal/dedup"
	"github.com/JakeFAU/keyword-crawler/internal/frontier"
	"github.com/JakeFAU/keyword-crawler/internal/metrics"
	"github.com/JakeFAU/keyword-crawler/internal/scoring"
	"github.com/JakeFAU/keyword-crawler/internal/textfilter"
)

// StopReason explains why a crawl ended.
type StopReason string

// Stop reasons reported in Summary.
const (
	StopMaxLevels         StopReason = "max_levels"
	StopMaxVisited        StopReason = "max_visited"
	StopFrontierExhausted StopReason = "frontier_exhausted"
	StopCanceled          StopReason = "canceled"
)

// Emitter hands a finished document to persistence.
type Emitter interface {
	Emit(ctx context.Context, doc crawler.ScoredDocument) error
}

// Config bounds a crawl run.
type Config struct {
	Seeds []string
	// MaxLevels is the number of BFS levels to process.
	MaxLevels int
	// MaxVisited stops the crawl at the next level boundary once this many
	// URLs were visited. Zero means unlimited.
	MaxVisited        int
	Concurrency       int
	FetchTimeout      time.Duration
	TopN              int
	ScoreCap          float64
	EmphasizeHeadings bool
}

// Dependencies are the collaborators an Engine drives.
type Dependencies struct {
	Fetcher    crawler.Fetcher
	Extractor  crawler.Extractor
	Classifier crawler.Classifier
	Emitter    Emitter
	// Tracker and Corpus are created when nil.
	Tracker *dedup.Tracker
	Corpus  *corpus.Statistics
	Logger  *zap.Logger
	Now     func() time.Time
}

// Summary reports the outcome of Run.
type Summary struct {
	RunID        string
	Levels       int
	Visited      int
	Failed       int
	Emitted      int
	SinkFailures int
	Discovered   int
	Reason       StopReason
	Duration     time.Duration
}

// Engine runs a single crawl. It is not reusable.
type Engine struct {
	cfg        Config
	fetcher    crawler.Fetcher
	extractor  crawler.Extractor
	classifier crawler.Classifier
	emitter    Emitter
	tracker    *dedup.Tracker
	corpus     *corpus.Statistics
	frontier   *frontier.Frontier
	scorer     *scoring.Scorer
	logger     *zap.Logger
	now        func() time.Time
	runID      string

	started atomic.Bool
	mu      sync.RWMutex
	stats   Stats
}

// New validates cfg and deps and returns an idle Engine.
func New(cfg Config, deps Dependencies) (*Engine, error) {
	if deps.Fetcher == nil || deps.Extractor == nil || deps.Classifier == nil || deps.Emitter == nil {
		return nil, errors.New("fetcher, extractor, classifier and emitter are required")
	}
	if cfg.MaxLevels <= 0 {
		return nil, errors.New("max levels must be > 0")
	}
	if cfg.MaxVisited < 0 {
		return nil, errors.New("max visited must be >= 0")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if deps.Tracker == nil {
		deps.Tracker = dedup.New()
	}
	if deps.Corpus == nil {
		deps.Corpus = corpus.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	scorer, err := scoring.New(scoring.Config{TopN: cfg.TopN, Cap: cfg.ScoreCap}, deps.Corpus)
	if err != nil {
		return nil, fmt.Errorf("build scorer: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}

	e := &Engine{
		cfg:        cfg,
		fetcher:    deps.Fetcher,
		extractor:  deps.Extractor,
		classifier: deps.Classifier,
		emitter:    deps.Emitter,
		tracker:    deps.Tracker,
		corpus:     deps.Corpus,
		frontier:   frontier.New(deps.Tracker),
		scorer:     scorer,
		now:        deps.Now,
		runID:      id.String(),
	}
	e.logger = deps.Logger.With(zap.String("run_id", e.runID))
	e.stats = Stats{RunID: e.runID, State: StateIdle}
	return e, nil
}

// RunID returns the identifier stamped on every record of this run.
func (e *Engine) RunID() string {
	return e.runID
}

// Run crawls until a stop condition holds. Stop conditions are checked only
// between levels. The error is non-nil only when ctx ends the crawl or Run
// was already called.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	if !e.started.CompareAndSwap(false, true) {
		return Summary{}, errors.New("engine already started")
	}
	start := e.now()
	e.updateStats(func(s *Stats) {
		s.State = StateRunning
		s.StartedAt = start
	})

	seeded := e.frontier.Seed(e.cfg.Seeds)
	e.updateStats(func(s *Stats) { s.Queued = seeded })
	e.logger.Info("crawl starting",
		zap.Int("seeds", seeded),
		zap.Int("max_levels", e.cfg.MaxLevels),
		zap.Int("max_visited", e.cfg.MaxVisited),
		zap.Int("concurrency", e.cfg.Concurrency),
	)

	var reason StopReason
	for {
		if reason = e.stopReason(ctx); reason != "" {
			break
		}
		lvl, ok := e.frontier.NextLevel()
		if !ok {
			reason = StopFrontierExhausted
			break
		}
		e.processLevel(ctx, lvl)
	}

	finished := e.now()
	e.updateStats(func(s *Stats) {
		s.State = StateFinished
		s.FinishedAt = finished
		s.StopReason = string(reason)
	})
	summary := e.summary(reason, finished.Sub(start))
	e.logger.Info("crawl finished",
		zap.String("reason", string(reason)),
		zap.Int("levels", summary.Levels),
		zap.Int("visited", summary.Visited),
		zap.Int("failed", summary.Failed),
		zap.Int("emitted", summary.Emitted),
		zap.Int("sink_failures", summary.SinkFailures),
		zap.Duration("duration", summary.Duration),
	)
	if reason == StopCanceled {
		return summary, fmt.Errorf("crawl interrupted: %w", context.Cause(ctx))
	}
	return summary, nil
}

func (e *Engine) stopReason(ctx context.Context) StopReason {
	if ctx.Err() != nil {
		return StopCanceled
	}
	s := e.Stats()
	if s.Levels >= e.cfg.MaxLevels {
		return StopMaxLevels
	}
	if e.cfg.MaxVisited > 0 && s.Visited >= e.cfg.MaxVisited {
		return StopMaxVisited
	}
	return ""
}

type pageResult struct {
	extraction crawler.Extraction
	tokens     []crawler.Token
	fetchedAt  time.Time
	err        error
}

func (e *Engine) processLevel(ctx context.Context, lvl frontier.Level) {
	metrics.SetFrontierLevel(lvl.Index)
	e.updateStats(func(s *Stats) { s.Level = lvl.Index })
	e.logger.Info("level starting", zap.Int("level", lvl.Index), zap.Int("urls", len(lvl.Entries)))

	entries := make([]frontier.Entry, 0, len(lvl.Entries))
	for _, entry := range lvl.Entries {
		if !e.tracker.TryVisit(entry.URL) {
			e.logger.Debug("skipping visited url", zap.String("url", entry.URL))
			continue
		}
		entries = append(entries, entry)
	}
	e.updateStats(func(s *Stats) { s.Visited += len(entries) })

	results := make([]pageResult, len(entries))
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			results[i] = e.fetchPage(ctx, entry)
			return nil
		})
	}
	_ = g.Wait()

	discovered := 0
	for i, entry := range entries {
		discovered += e.finishPage(ctx, entry, results[i])
	}

	e.updateStats(func(s *Stats) {
		s.Levels++
		s.Pending = e.frontier.Pending()
		s.Queued = e.frontier.Accepted()
	})
	e.logger.Info("level finished",
		zap.Int("level", lvl.Index),
		zap.Int("visited", len(entries)),
		zap.Int("discovered", discovered),
	)
}

// fetchPage covers FETCHING through EXTRACTED plus classification. It runs
// concurrently and must not touch corpus statistics or the frontier.
func (e *Engine) fetchPage(ctx context.Context, entry frontier.Entry) pageResult {
	logger := e.logger.With(zap.String("url", entry.URL), zap.Int("level", entry.Level))
	logger.Debug("url state", zap.Stringer("state", crawler.StateFetching))

	fetchCtx := ctx
	if e.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, e.cfg.FetchTimeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := e.fetcher.Fetch(fetchCtx, entry.URL)
	metrics.ObserveFetchDuration(time.Since(started))
	if err != nil {
		if !crawler.IsFetchFailure(err) {
			err = fmt.Errorf("%w: %w", crawler.ErrFetch, err)
		}
		return pageResult{err: &crawler.URLError{URL: entry.URL, Stage: crawler.StateFetching, Err: err}}
	}
	fetchedAt := e.now().UTC()
	logger.Debug("url state", zap.Stringer("state", crawler.StateFetched), zap.Int("status", resp.StatusCode))

	extraction, err := e.extractor.Extract(resp.Body)
	if err != nil {
		if !errors.Is(err, crawler.ErrExtraction) {
			err = fmt.Errorf("%w: %w", crawler.ErrExtraction, err)
		}
		return pageResult{err: &crawler.URLError{URL: entry.URL, Stage: crawler.StateFetched, Err: err}}
	}
	logger.Debug("url state", zap.Stringer("state", crawler.StateExtracted), zap.Int("links", len(extraction.Links)))

	tokens, err := e.classifier.Tag(ctx, e.classifierInput(extraction))
	if err != nil {
		return pageResult{err: &crawler.URLError{
			URL:   entry.URL,
			Stage: crawler.StateExtracted,
			Err:   fmt.Errorf("%w: classify: %w", crawler.ErrExtraction, err),
		}}
	}
	return pageResult{extraction: extraction, tokens: tokens, fetchedAt: fetchedAt}
}

// classifierInput repeats the title and h1/h2 headings after the body text
// when heading emphasis is on, so those words weigh more in term frequency.
func (e *Engine) classifierInput(ex crawler.Extraction) string {
	if !e.cfg.EmphasizeHeadings {
		return ex.Text
	}
	parts := make([]string, 0, len(ex.Headings)+2)
	parts = append(parts, ex.Text)
	if ex.Title != "" {
		parts = append(parts, ex.Title)
	}
	parts = append(parts, ex.Headings...)
	return strings.Join(parts, "\n")
}

// finishPage runs sequentially in discovery order. It returns the number of
// newly queued links.
func (e *Engine) finishPage(ctx context.Context, entry frontier.Entry, res pageResult) int {
	logger := e.logger.With(zap.String("url", entry.URL), zap.Int("level", entry.Level))
	if res.err != nil {
		logger.Warn("url failed", zap.Stringer("state", crawler.StateFetchFailed), zap.Error(res.err))
		metrics.ObservePage(crawler.StateFetchFailed.String())
		e.updateStats(func(s *Stats) { s.Failed++ })
		return 0
	}

	scored := e.scorer.Score(textfilter.Terms(res.tokens))
	metrics.SetCorpusDocuments(scored.Ordinal)
	logger.Debug("url state",
		zap.Stringer("state", crawler.StateScored),
		zap.Int("sequence", scored.Ordinal),
		zap.Any("keywords", scored.Keywords),
	)

	links := make([]crawler.Link, 0, len(res.extraction.Links))
	for _, raw := range res.extraction.Links {
		target := raw
		if normalized, err := crawler.NormalizeURL(raw); err == nil {
			target = normalized
		}
		links = append(links, crawler.Link{URL: target, Source: entry.URL})
	}

	doc := crawler.ScoredDocument{
		RunID:     e.runID,
		URL:       entry.URL,
		Title:     res.extraction.Title,
		Level:     entry.Level,
		Sequence:  scored.Ordinal,
		Links:     links,
		Keywords:  scored.Keywords,
		FetchedAt: res.fetchedAt,
	}

	// The page is already folded into the corpus, so it is persisted even
	// when the run was canceled mid-level. InsertTimeout bounds the insert.
	if err := e.emitter.Emit(context.WithoutCancel(ctx), doc); err != nil {
		logger.Error("sink insert failed", zap.Error(err))
		e.updateStats(func(s *Stats) { s.SinkFailures++ })
	} else {
		e.updateStats(func(s *Stats) { s.Emitted++ })
	}
	metrics.ObservePage(crawler.StateEmitted.String())
	logger.Debug("url state", zap.Stringer("state", crawler.StateEmitted))

	added := 0
	for _, link := range links {
		if e.frontier.Enqueue(link.URL, entry.URL) {
			added++
		}
	}
	metrics.ObserveLinksDiscovered(added)
	vocabulary := e.corpus.Vocabulary()
	e.updateStats(func(s *Stats) {
		s.Discovered += added
		s.CorpusDocuments = scored.Ordinal
		s.CorpusVocabulary = vocabulary
	})
	return added
}

func (e *Engine) summary(reason StopReason, elapsed time.Duration) Summary {
	s := e.Stats()
	return Summary{
		RunID:        e.runID,
		Levels:       s.Levels,
		Visited:      s.Visited,
		Failed:       s.Failed,
		Emitted:      s.Emitted,
		SinkFailures: s.SinkFailures,
		Discovered:   s.Discovered,
		Reason:       reason,
		Duration:     elapsed,
	}
}
