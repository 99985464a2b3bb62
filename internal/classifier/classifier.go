// Package classifier tags English text with universal part-of-speech labels,
// stemmed lemmas and a stopword flag.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	"github.com/kljensen/snowball"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

const language = "english"

// ProseTagger implements crawler.Classifier with an averaged perceptron tagger
// and a snowball stemmer.
type ProseTagger struct {
	maxChars int
}

// Option configures a ProseTagger.
type Option func(*ProseTagger)

// WithMaxChars truncates input text beyond n characters. Zero means no limit.
func WithMaxChars(n int) Option {
	return func(p *ProseTagger) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// NewProseTagger returns a ready tagger.
func NewProseTagger(opts ...Option) *ProseTagger {
	p := &ProseTagger{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tag splits text into tokens in reading order.
func (p *ProseTagger) Tag(ctx context.Context, text string) ([]crawler.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}
	if p.maxChars > 0 && len(text) > p.maxChars {
		text = truncate(text, p.maxChars)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return nil, fmt.Errorf("tag text: %w", err)
	}

	raw := doc.Tokens()
	tokens := make([]crawler.Token, 0, len(raw))
	for _, tok := range raw {
		if tok.Text == "" {
			continue
		}
		pos := MapPennTag(tok.Tag, tok.Text)
		tokens = append(tokens, crawler.Token{
			Surface:  tok.Text,
			Lemma:    Lemma(tok.Text, pos),
			POS:      pos,
			Stopword: IsStopword(tok.Text),
		})
	}
	return tokens, nil
}

// Lemma reduces word to its stem. Proper nouns and non-alphabetic words keep
// their surface form.
func Lemma(word string, pos crawler.POS) string {
	if pos == crawler.POSProperNoun || !hasLetter(word) {
		return word
	}
	stem, err := snowball.Stem(word, language, true)
	if err != nil || stem == "" {
		return strings.ToLower(word)
	}
	return stem
}

// MapPennTag converts a Penn Treebank tag to a universal POS tag.
func MapPennTag(tag, text string) crawler.POS {
	switch {
	case tag == "NN" || tag == "NNS":
		return crawler.POSNoun
	case tag == "NNP" || tag == "NNPS":
		return crawler.POSProperNoun
	case strings.HasPrefix(tag, "JJ"):
		return crawler.POSAdjective
	case strings.HasPrefix(tag, "VB"):
		return crawler.POSVerb
	case tag == "MD":
		return crawler.POSAuxiliary
	case strings.HasPrefix(tag, "RB") || tag == "WRB":
		return crawler.POSAdverb
	case tag == "DT" || tag == "PDT" || tag == "WDT":
		return crawler.POSDeterminer
	case tag == "PRP" || tag == "PRP$" || tag == "WP" || tag == "WP$" || tag == "EX":
		return crawler.POSPronoun
	case tag == "IN":
		return crawler.POSAdposition
	case tag == "CC":
		return crawler.POSConjunction
	case tag == "CD":
		return crawler.POSNumeral
	case tag == "RP" || tag == "TO" || tag == "POS":
		return crawler.POSParticle
	case tag == "UH":
		return crawler.POSInterjection
	case tag == "SYM" || tag == "$" || tag == "#":
		return crawler.POSSymbol
	case tag == "FW" || tag == "LS":
		return crawler.POSOther
	}
	if isPunctuation(text) {
		return crawler.POSPunctuation
	}
	return crawler.POSOther
}

func isPunctuation(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !unicode.IsPunct(r) {
			return false
		}
	}
	return true
}

func hasLetter(word string) bool {
	for _, r := range word {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func truncate(text string, n int) string {
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
