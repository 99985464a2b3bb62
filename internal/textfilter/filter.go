// Package textfilter decides which classified tokens are worth scoring.
package textfilter

import (
	"strings"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// fillerWords is a curated list of high-frequency function words. It must
// stay in sync with published crawl output, so edit with care.
var fillerWords = newSet(
	"a", "an", "the", "and", "or", "but",
	"is", "are", "was", "were", "be", "been", "being",
	"to", "of", "in", "for", "on", "with", "at",
	"by", "from", "that", "which", "who", "whom",
	"this", "these", "those", "it", "its", "they", "their",
	"he", "she", "his", "her", "we", "us", "our",
	"you", "your", "me", "my", "him", "them", "they",
	"there", "here", "where", "when", "why", "how",
	"what", "which", "who", "whom", "whose", "if", "than",
	"so", "such", "as", "like", "just", "only", "more",
	"some", "any", "all", "every", "no", "not", "never",
	"always", "often", "sometimes", "usually", "rarely",
	"i",
)

var contentPOS = map[crawler.POS]struct{}{
	crawler.POSNoun:       {},
	crawler.POSProperNoun: {},
	crawler.POSAdjective:  {},
}

func newSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// IsFiller reports whether word, case-folded, is on the filler list.
func IsFiller(word string) bool {
	_, ok := fillerWords[strings.ToLower(strings.TrimSpace(word))]
	return ok
}

// FillerCount returns the number of distinct filler words.
func FillerCount() int {
	return len(fillerWords)
}

// Keep reports whether tok is a content word: a noun, proper noun or
// adjective that is neither a stopword nor a filler word.
func Keep(tok crawler.Token) bool {
	if _, ok := contentPOS[tok.POS]; !ok {
		return false
	}
	if tok.Stopword {
		return false
	}
	return !IsFiller(lemmaOf(tok))
}

// Apply returns the tokens that pass Keep, in input order.
func Apply(tokens []crawler.Token) []crawler.Token {
	out := make([]crawler.Token, 0, len(tokens))
	for _, tok := range tokens {
		if Keep(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// Terms returns the scoring key of each kept token: its lower-cased lemma.
func Terms(tokens []crawler.Token) []string {
	kept := Apply(tokens)
	terms := make([]string, 0, len(kept))
	for _, tok := range kept {
		if term := lemmaOf(tok); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

func lemmaOf(tok crawler.Token) string {
	lemma := tok.Lemma
	if lemma == "" {
		lemma = tok.Surface
	}
	return strings.ToLower(strings.TrimSpace(lemma))
}
