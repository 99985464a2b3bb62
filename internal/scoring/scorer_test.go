package scoring

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keyword-crawler/internal/corpus"
	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

func newScorer(t *testing.T, cfg Config) *Scorer {
	t.Helper()
	s, err := New(cfg, corpus.New())
	require.NoError(t, err)
	return s
}

func scoreOf(kws []crawler.Keyword, word string) (float64, bool) {
	for _, kw := range kws {
		if kw.Word == word {
			return kw.Score, true
		}
	}
	return 0, false
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	require.Error(t, err)
	_, err = New(Config{TopN: -1}, corpus.New())
	require.Error(t, err)
	_, err = New(Config{Cap: -1}, corpus.New())
	require.Error(t, err)

	s, err := New(Config{}, corpus.New())
	require.NoError(t, err)
	assert.Equal(t, DefaultTopN, s.cfg.TopN)
	assert.Equal(t, DefaultCap, s.cfg.Cap)
}

func TestFirstDocumentScoresZero(t *testing.T) {
	t.Parallel()

	s := newScorer(t, Config{})
	res := s.Score([]string{"go", "go", "crawler"})
	require.Equal(t, 1, res.Ordinal)
	require.Len(t, res.Keywords, 2)
	for _, kw := range res.Keywords {
		assert.Zero(t, kw.Score)
	}
	assert.Equal(t, "go", res.Keywords[0].Word, "ties keep first occurrence order")
}

func TestScoreUsesPriorStatistics(t *testing.T) {
	t.Parallel()

	s := newScorer(t, Config{})
	s.Score([]string{"go", "crawler"})
	s.Score([]string{"anime"})

	res := s.Score([]string{"go", "go", "go", "anime", "fresh"})
	require.Equal(t, 3, res.Ordinal)

	goScore, ok := scoreOf(res.Keywords, "go")
	require.True(t, ok)
	assert.InDelta(t, 3*math.Log(2.0/1.0), goScore, 1e-9)

	animeScore, _ := scoreOf(res.Keywords, "anime")
	assert.InDelta(t, math.Log(2.0), animeScore, 1e-9)

	fresh, _ := scoreOf(res.Keywords, "fresh")
	assert.Zero(t, fresh, "unseen term has idf 0")
	assert.Equal(t, "go", res.Keywords[0].Word)
}

func TestScoreOrderDependence(t *testing.T) {
	t.Parallel()

	docA := []string{"go", "go", "crawler"}
	docB := []string{"go", "anime", "anime"}
	warmup := []string{"anime", "crawler"}

	run := func(first, second []string) (Result, Result) {
		s := newScorer(t, Config{})
		s.Score(warmup)
		return s.Score(first), s.Score(second)
	}

	a1, b1 := run(docA, docB)
	b2, a2 := run(docB, docA)

	assert.NotEqual(t, a1.Keywords, a2.Keywords, "doc A must score differently when processed second")
	assert.NotEqual(t, b1.Keywords, b2.Keywords, "doc B must score differently when processed first")
}

func TestScoreCap(t *testing.T) {
	t.Parallel()

	s := newScorer(t, Config{Cap: 50})
	for i := 0; i < 20; i++ {
		s.Score([]string{fmt.Sprintf("filler-%d", i)})
	}
	s.Score([]string{"rare"})

	terms := make([]string, 100)
	for i := range terms {
		terms[i] = "rare"
	}
	res := s.Score(terms)
	require.Len(t, res.Keywords, 1)
	assert.Equal(t, 50.0, res.Keywords[0].Score)
}

func TestTopNBoundAndOrdering(t *testing.T) {
	t.Parallel()

	s := newScorer(t, Config{TopN: 3})
	var corpusTerms []string
	for i := 0; i < 6; i++ {
		corpusTerms = append(corpusTerms, fmt.Sprintf("t%d", i))
	}
	s.Score(corpusTerms)
	s.Score([]string{"other"})

	var doc []string
	for i := 0; i < 6; i++ {
		for j := 0; j <= i; j++ {
			doc = append(doc, fmt.Sprintf("t%d", i))
		}
	}
	res := s.Score(doc)
	require.Len(t, res.Keywords, 3)
	assert.Equal(t, []string{"t5", "t4", "t3"}, []string{res.Keywords[0].Word, res.Keywords[1].Word, res.Keywords[2].Word})
	for i := 1; i < len(res.Keywords); i++ {
		assert.Greater(t, res.Keywords[i-1].Score, res.Keywords[i].Score)
	}
}
