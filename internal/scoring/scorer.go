// Package scoring ranks a document's terms by causal TF-IDF.
package scoring

import (
	"errors"
	"math"
	"sort"

	"github.com/JakeFAU/keyword-crawler/internal/corpus"
	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// Defaults applied when a Config field is zero.
const (
	DefaultTopN = 10
	DefaultCap  = 50.0
)

// Config bounds the keyword list.
type Config struct {
	TopN int
	Cap  float64
}

// Result is the outcome of scoring one document.
type Result struct {
	Keywords []crawler.Keyword
	// Ordinal is the document's 1-based position in the corpus.
	Ordinal int
}

// Scorer computes keyword weights against a shared corpus.
type Scorer struct {
	cfg   Config
	stats *corpus.Statistics
}

// New builds a Scorer over stats.
func New(cfg Config, stats *corpus.Statistics) (*Scorer, error) {
	if stats == nil {
		return nil, errors.New("corpus statistics are required")
	}
	if cfg.TopN < 0 {
		return nil, errors.New("top n must be >= 0")
	}
	if cfg.Cap < 0 {
		return nil, errors.New("score cap must be >= 0")
	}
	if cfg.TopN == 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.Cap == 0 {
		cfg.Cap = DefaultCap
	}
	return &Scorer{cfg: cfg, stats: stats}, nil
}

// Score weighs terms using the corpus as it stood before this document, then
// folds the document into the corpus. Calls must be made in the order
// documents should be counted.
func (s *Scorer) Score(terms []string) Result {
	tf := make(map[string]int, len(terms))
	order := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, ok := tf[term]; !ok {
			order = append(order, term)
		}
		tf[term]++
	}

	prior, ordinal := s.stats.Fold(terms)

	keywords := make([]crawler.Keyword, 0, len(order))
	for _, term := range order {
		keywords = append(keywords, crawler.Keyword{
			Word:  term,
			Score: math.Min(float64(tf[term])*idf(prior, term), s.cfg.Cap),
		})
	}
	sort.SliceStable(keywords, func(i, j int) bool {
		return keywords[i].Score > keywords[j].Score
	})
	if len(keywords) > s.cfg.TopN {
		keywords = keywords[:s.cfg.TopN]
	}
	return Result{Keywords: keywords, Ordinal: ordinal}
}

func idf(prior corpus.Prior, term string) float64 {
	df := prior.Frequency[term]
	if df == 0 || prior.Documents == 0 {
		return 0
	}
	return math.Log(float64(prior.Documents) / float64(df))
}
