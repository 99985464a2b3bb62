package crawler

import (
	"net/http"
	"time"
)

// POS is a universal part-of-speech tag.
type POS string

// Universal part-of-speech tags produced by classifiers.
const (
	POSNoun         POS = "NOUN"
	POSProperNoun   POS = "PROPN"
	POSAdjective    POS = "ADJ"
	POSVerb         POS = "VERB"
	POSAuxiliary    POS = "AUX"
	POSAdverb       POS = "ADV"
	POSDeterminer   POS = "DET"
	POSPronoun      POS = "PRON"
	POSAdposition   POS = "ADP"
	POSConjunction  POS = "CCONJ"
	POSNumeral      POS = "NUM"
	POSParticle     POS = "PART"
	POSInterjection POS = "INTJ"
	POSPunctuation  POS = "PUNCT"
	POSSymbol       POS = "SYM"
	POSOther        POS = "X"
)

// Token is a single classified word from page text.
type Token struct {
	Surface  string
	Lemma    string
	POS      POS
	Stopword bool
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Extraction is the parsed view of an HTML body.
type Extraction struct {
	Text     string
	Title    string
	Headings []string
	// Links holds absolute http(s) URLs in document order.
	Links []string
}

// Link is an outbound edge discovered on a page.
type Link struct {
	URL    string `json:"url"`
	Source string `json:"source_url"`
}

// Keyword is a scored term.
type Keyword struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// ScoredDocument is built once per visited URL and never mutated afterwards.
type ScoredDocument struct {
	RunID    string
	URL      string
	Title    string
	Level    int
	Sequence int
	Links    []Link
	Keywords []Keyword
	// FetchedAt is the UTC time the page body was received.
	FetchedAt time.Time
}

// Record is the row handed to a Sink.
type Record struct {
	RunID     string    `json:"run_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Level     int       `json:"level"`
	Sequence  int       `json:"sequence"`
	Keywords  []Keyword `json:"keywords"`
	Links     []Link    `json:"links"`
	FetchedAt time.Time `json:"fetched_at"`
}

// URLState is a step in the per-URL crawl lifecycle.
type URLState int

// Lifecycle states. FetchFailed and Emitted are terminal.
const (
	StateDiscovered URLState = iota
	StateReserved
	StateFetching
	StateFetchFailed
	StateFetched
	StateExtracted
	StateScored
	StateEmitted
)

var stateNames = [...]string{
	StateDiscovered:  "DISCOVERED",
	StateReserved:    "RESERVED",
	StateFetching:    "FETCHING",
	StateFetchFailed: "FETCH_FAILED",
	StateFetched:     "FETCHED",
	StateExtracted:   "EXTRACTED",
	StateScored:      "SCORED",
	StateEmitted:     "EMITTED",
}

func (s URLState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}
