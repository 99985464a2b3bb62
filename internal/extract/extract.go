// Package extract turns an HTML body into plain text, a title, h1/h2
// headings and outbound links.
package extract

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

var (
	whitespace = regexp.MustCompile(`[\s\p{Zs}]+`)
	dropped    = "script,style,noscript,template,iframe,svg"
)

// HTMLExtractor implements crawler.Extractor using goquery.
type HTMLExtractor struct {
	policy *bluemonday.Policy
}

// New returns an extractor with a strict sanitizing policy.
func New() *HTMLExtractor {
	return &HTMLExtractor{policy: bluemonday.StrictPolicy()}
}

// Extract parses body. Only absolute http(s) links are returned, once each,
// in document order.
func (e *HTMLExtractor) Extract(body []byte) (crawler.Extraction, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return crawler.Extraction{}, fmt.Errorf("empty body: %w", crawler.ErrExtraction)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return crawler.Extraction{}, fmt.Errorf("parse html: %v: %w", err, crawler.ErrExtraction)
	}
	doc.Find(dropped).Remove()

	out := crawler.Extraction{
		Title: e.clean(doc.Find("title").First().Text()),
		Links: links(doc),
	}
	doc.Find("h1, h2").Each(func(_ int, s *goquery.Selection) {
		if text := e.clean(s.Text()); text != "" {
			out.Headings = append(out.Headings, text)
		}
	})
	out.Text = e.clean(visibleText(doc.Find("body")))
	return out, nil
}

func links(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if !crawler.IsCrawlable(href) {
			return
		}
		if _, ok := seen[href]; ok {
			return
		}
		seen[href] = struct{}{}
		out = append(out, href)
	})
	return out
}

// visibleText joins text nodes with spaces so adjacent block elements do not
// run their words together.
func visibleText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}

func (e *HTMLExtractor) clean(s string) string {
	s = html.UnescapeString(e.policy.Sanitize(s))
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
