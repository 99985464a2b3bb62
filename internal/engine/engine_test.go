package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
	"github.com/JakeFAU/keyword-crawler/internal/emitter"
	"github.com/JakeFAU/keyword-crawler/internal/extract"
	"github.com/JakeFAU/keyword-crawler/internal/sink/memory"
)

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	fail  map[string]error
	delay map[string]time.Duration
	// before runs at the start of Fetch for a URL.
	before map[string]func()
	calls  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:  make(map[string]string),
		fail:   make(map[string]error),
		delay:  make(map[string]time.Duration),
		before: make(map[string]func()),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (crawler.FetchResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	body, ok := f.pages[rawURL]
	failErr := f.fail[rawURL]
	wait := f.delay[rawURL]
	hook := f.before[rawURL]
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	if wait > 0 {
		select {
		case <-ctx.Done():
			return crawler.FetchResponse{}, fmt.Errorf("wait: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	if failErr != nil {
		return crawler.FetchResponse{}, fmt.Errorf("%w: %w", crawler.ErrFetch, failErr)
	}
	if !ok {
		return crawler.FetchResponse{URL: rawURL, StatusCode: 404}, fmt.Errorf("status 404: %w", crawler.ErrFetch)
	}
	return crawler.FetchResponse{URL: rawURL, FinalURL: rawURL, StatusCode: 200, Body: []byte(body)}, nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// wordClassifier tags every alphanumeric run as a noun.
type wordClassifier struct{}

func (wordClassifier) Tag(_ context.Context, text string) ([]crawler.Token, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]crawler.Token, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, crawler.Token{Surface: f, Lemma: strings.ToLower(f), POS: crawler.POSNoun})
	}
	return tokens, nil
}

func page(title, body string, links ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body><p>%s</p>", title, body)
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">link</a>`, l)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// ctxSink rejects inserts once ctx is done, like the file and database sinks.
type ctxSink struct {
	*memory.Sink
}

func (s ctxSink) Insert(ctx context.Context, record crawler.Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return s.Sink.Insert(ctx, record)
}

type harness struct {
	fetcher *fakeFetcher
	sink    *memory.Sink
	cfg     Config
}

func newHarness() *harness {
	return &harness{
		fetcher: newFakeFetcher(),
		sink:    memory.New(),
		cfg: Config{
			MaxLevels:   10,
			Concurrency: 4,
			TopN:        10,
			ScoreCap:    50,
		},
	}
}

func (h *harness) engine(t *testing.T) *Engine {
	t.Helper()
	em, err := emitter.New(ctxSink{h.sink}, emitter.Options{})
	require.NoError(t, err)
	e, err := New(h.cfg, Dependencies{
		Fetcher:    h.fetcher,
		Extractor:  extract.New(),
		Classifier: wordClassifier{},
		Emitter:    em,
		Now:        func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return e
}

func recordURLs(recs []crawler.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.URL)
	}
	return out
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(Config{MaxLevels: 1}, Dependencies{})
	require.Error(t, err)

	h := newHarness()
	em, err := emitter.New(ctxSink{h.sink}, emitter.Options{})
	require.NoError(t, err)
	deps := Dependencies{Fetcher: h.fetcher, Extractor: extract.New(), Classifier: wordClassifier{}, Emitter: em}
	_, err = New(Config{MaxLevels: 0}, deps)
	require.Error(t, err)
	_, err = New(Config{MaxLevels: 1, MaxVisited: -1}, deps)
	require.Error(t, err)
}

func TestRunTerminatesAfterMaxLevels(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.cfg.MaxLevels = 2
	h.cfg.Seeds = []string{"https://seed.example"}
	h.fetcher.pages["https://seed.example/"] = page("seed", "root page",
		"https://a.example/", "https://b.example/", "https://c.example/")
	for _, host := range []string{"a", "b", "c"} {
		h.fetcher.pages["https://"+host+".example/"] = page(host, "child page",
			"https://"+host+".example/deeper")
	}

	e := h.engine(t)
	summary, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StopMaxLevels, summary.Reason)
	assert.Equal(t, 2, summary.Levels)
	assert.Equal(t, 4, summary.Visited)
	assert.Len(t, h.fetcher.Calls(), 4)
	assert.Equal(t, 4, h.sink.Len())
	assert.Equal(t, e.RunID(), summary.RunID)
	assert.Equal(t, 3, e.Stats().Pending, "deeper links stay queued")
}

func TestRunFetchesEachURLOnce(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.cfg.Seeds = []string{"https://a.example/", "https://A.example", "https://b.example/#frag"}
	h.fetcher.pages["https://a.example/"] = page("a", "alpha",
		"https://b.example/", "https://c.example/", "https://a.example/")
	h.fetcher.pages["https://b.example/"] = page("b", "beta", "https://c.example/", "https://a.example")
	h.fetcher.pages["https://c.example/"] = page("c", "gamma", "https://a.example/", "https://b.example/")

	summary, err := h.engine(t).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopFrontierExhausted, summary.Reason)

	calls := h.fetcher.Calls()
	seen := make(map[string]int)
	for _, c := range calls {
		seen[c]++
	}
	for url, n := range seen {
		assert.Equalf(t, 1, n, "%s fetched %d times", url, n)
	}
	assert.Len(t, calls, 3)
	assert.Equal(t, 3, summary.Visited)
}

func TestRunBreadthFirstOrder(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.cfg.Seeds = []string{"https://s1.example/", "https://s2.example/"}
	h.fetcher.pages["https://s1.example/"] = page("s1", "one", "https://l1a.example/", "https://l1b.example/")
	h.fetcher.pages["https://s2.example/"] = page("s2", "two", "https://l1c.example/")
	h.fetcher.delay["https://s2.example/"] = 30 * time.Millisecond
	h.fetcher.pages["https://l1a.example/"] = page("l1a", "x", "https://l2.example/")
	h.fetcher.pages["https://l1b.example/"] = page("l1b", "y")
	h.fetcher.pages["https://l1c.example/"] = page("l1c", "z")
	h.fetcher.pages["https://l2.example/"] = page("l2", "deep")

	summary, err := h.engine(t).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Levels)

	level := map[string]int{
		"https://s1.example/": 0, "https://s2.example/": 0,
		"https://l1a.example/": 1, "https://l1b.example/": 1, "https://l1c.example/": 1,
		"https://l2.example/": 2,
	}
	calls := h.fetcher.Calls()
	require.Len(t, calls, 6)
	for i := 1; i < len(calls); i++ {
		assert.LessOrEqualf(t, level[calls[i-1]], level[calls[i]], "fetch order %v", calls)
	}

	recs := h.sink.Records()
	assert.Equal(t, []string{
		"https://s1.example/", "https://s2.example/",
		"https://l1a.example/", "https://l1b.example/", "https://l1c.example/",
		"https://l2.example/",
	}, recordURLs(recs), "records follow discovery order regardless of fetch timing")
	for i, rec := range recs {
		assert.Equal(t, i+1, rec.Sequence)
		assert.Equal(t, level[rec.URL], rec.Level)
	}
}

func TestRunScoresAreOrderDependent(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"https://warm.example/": page("", "anime crawler"),
		"https://one.example/":  page("", "go go crawler"),
		"https://two.example/":  page("", "go anime anime"),
	}
	run := func(seeds ...string) map[string][]crawler.Keyword {
		h := newHarness()
		h.cfg.Seeds = seeds
		for k, v := range pages {
			h.fetcher.pages[k] = v
		}
		_, err := h.engine(t).Run(context.Background())
		require.NoError(t, err)
		out := make(map[string][]crawler.Keyword)
		for _, rec := range h.sink.Records() {
			out[rec.URL] = rec.Keywords
		}
		return out
	}

	forward := run("https://warm.example/", "https://one.example/", "https://two.example/")
	reverse := run("https://warm.example/", "https://two.example/", "https://one.example/")

	assert.NotEqual(t, forward["https://one.example/"], reverse["https://one.example/"])
	assert.NotEqual(t, forward["https://two.example/"], reverse["https://two.example/"])
	for _, kw := range forward["https://warm.example/"] {
		assert.Zero(t, kw.Score, "first document has no prior corpus")
	}
}

func TestRunKeywordBounds(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.cfg.TopN = 3
	h.cfg.ScoreCap = 1.0
	var seeds []string
	for i := 0; i < 5; i++ {
		url := fmt.Sprintf("https://p%d.example/", i)
		seeds = append(seeds, url)
		h.fetcher.pages[url] = page("", fmt.Sprintf("shared unique%d alpha beta gamma delta delta delta", i))
	}
	h.fetcher.pages["https://p4.example/"] = page("", "rare rare rare rare rare rare rare alpha beta gamma delta")
	h.cfg.Seeds = seeds

	_, err := h.engine(t).Run(context.Background())
	require.NoError(t, err)

	for _, rec := range h.sink.Records() {
		assert.LessOrEqual(t, len(rec.Keywords), 3)
		for i, kw := range rec.Keywords {
			assert.LessOrEqual(t, kw.Score, 1.0)
			if i > 0 {
				assert.GreaterOrEqual(t, rec.Keywords[i-1].Score, kw.Score)
			}
		}
	}
}

func TestRunFailureIsolation(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.cfg.Seeds = []string{"https://a.example/", "https://b.example/", "https://c.example/"}
	h.fetcher.pages["https://a.example/"] = page("a", "alpha")
	h.fetcher.fail["https://b.example/"] = errors.New("connection refused")
	h.fetcher.pages["https://c.example/"] = page("c", "gamma")

	summary, err := h.engine(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Visited)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Emitted)
	assert.Equal(t, []string{"https://a.example/", "https://c.example/"}, recordURLs(h.sink.Records()))
	assert.Equal(t, 2, h.sink.Records()[1].Sequence, "failed pages do not consume a corpus ordinal")
}

func TestRunExtractionFailureCountsAsFetchFailure(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.cfg.Seeds = []string{"https://empty.example/", "https://ok.example/"}
	h.fetcher.pages["https://empty.example/"] = "   "
	h.fetcher.pages["https://ok.example/"] = page("ok", "fine")

	summary, err := h.engine(t).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Emitted)
}

func TestRunContinuesAfterSinkFailure(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.cfg.Seeds = []string{"https://a.example/"}
	h.fetcher.pages["https://a.example/"] = page("a", "alpha", "https://b.example/")
	h.fetcher.pages["https://b.example/"] = page("b", "beta")
	h.sink.FailFor("https://a.example/")

	summary, err := h.engine(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Visited)
	assert.Equal(t, 1, summary.SinkFailures)
	assert.Equal(t, 1, summary.Emitted)
	assert.Equal(t, []string{"https://b.example/"}, recordURLs(h.sink.Records()), "links of a page whose insert failed are still followed")
}

func TestRunStopsAtMaxVisited(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.cfg.MaxVisited = 2
	h.cfg.Seeds = []string{"https://seed.example/"}
	h.fetcher.pages["https://seed.example/"] = page("seed", "root",
		"https://a.example/", "https://b.example/", "https://c.example/")
	for _, host := range []string{"a", "b", "c"} {
		h.fetcher.pages["https://"+host+".example/"] = page(host, "child", "https://"+host+".example/next")
	}

	summary, err := h.engine(t).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StopMaxVisited, summary.Reason)
	assert.Equal(t, 4, summary.Visited, "the level in flight completes before the limit applies")
	assert.Equal(t, 2, summary.Levels)
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.cfg.Seeds = []string{"https://a.example/"}
	h.fetcher.pages["https://a.example/"] = page("a", "alpha")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := h.engine(t)
	summary, err := e.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopCanceled, summary.Reason)
	assert.Zero(t, summary.Visited)
	assert.Empty(t, h.fetcher.Calls())
	assert.Equal(t, StateFinished, e.Stats().State)
}

func TestRunCanceledMidLevelPersistsScoredPages(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.cfg.Concurrency = 1
	h.cfg.Seeds = []string{"https://fast.example/", "https://slow.example/"}
	h.fetcher.pages["https://fast.example/"] = page("fast", "quick page", "https://next.example/")
	h.fetcher.pages["https://slow.example/"] = page("slow", "slow page")
	h.fetcher.delay["https://slow.example/"] = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.fetcher.before["https://slow.example/"] = cancel

	e := h.engine(t)
	summary, err := e.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopCanceled, summary.Reason)
	assert.Equal(t, 1, summary.Levels, "the level in flight completes")
	assert.Equal(t, 2, summary.Visited)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Emitted)
	assert.Zero(t, summary.SinkFailures)

	recs := h.sink.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "https://fast.example/", recs[0].URL)
	assert.Equal(t, 1, recs[0].Sequence)
	assert.Equal(t, 1, e.Stats().CorpusDocuments)
}

func TestStatsReportQueueAndVocabulary(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.cfg.Seeds = []string{"https://a.example/"}
	h.fetcher.pages["https://a.example/"] = page("", "alpha beta", "https://b.example/")
	h.fetcher.pages["https://b.example/"] = page("", "beta gamma")

	e := h.engine(t)
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	stats := e.Stats()
	assert.Equal(t, 2, stats.Queued)
	assert.Equal(t, 2, stats.CorpusDocuments)
	// alpha, beta, gamma and the anchor text "link" from page a.
	assert.Equal(t, 4, stats.CorpusVocabulary)
}

func TestRunOnlyOnce(t *testing.T) {
	t.Parallel()

	h := newHarness()
	e := h.engine(t)
	_, err := e.Run(context.Background())
	require.NoError(t, err)
	_, err = e.Run(context.Background())
	require.Error(t, err)
}

func TestRunFetchTimeout(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.cfg.FetchTimeout = 20 * time.Millisecond
	h.cfg.Seeds = []string{"https://slow.example/", "https://fast.example/"}
	h.fetcher.pages["https://slow.example/"] = page("slow", "slow")
	h.fetcher.delay["https://slow.example/"] = time.Second
	h.fetcher.pages["https://fast.example/"] = page("fast", "fast")

	summary, err := h.engine(t).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"https://fast.example/"}, recordURLs(h.sink.Records()))
}

func TestClassifierInputEmphasis(t *testing.T) {
	t.Parallel()

	ex := crawler.Extraction{Text: "body", Title: "Title", Headings: []string{"H1", "H2"}}

	h := newHarness()
	h.cfg.EmphasizeHeadings = true
	assert.Equal(t, "body\nTitle\nH1\nH2", h.engine(t).classifierInput(ex))

	h.cfg.EmphasizeHeadings = false
	assert.Equal(t, "body", h.engine(t).classifierInput(ex))
}

func TestRecordsCarryLinksAndMetadata(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.cfg.MaxLevels = 1
	h.cfg.Seeds = []string{"https://a.example/"}
	h.fetcher.pages["https://a.example/"] = page("Alpha Page", "alpha", "https://B.example/x/", "/relative")

	e := h.engine(t)
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	recs := h.sink.Records()
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, e.RunID(), rec.RunID)
	assert.Equal(t, "Alpha Page", rec.Title)
	assert.Equal(t, []crawler.Link{{URL: "https://b.example/x", Source: "https://a.example/"}}, rec.Links)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), rec.FetchedAt)
}
