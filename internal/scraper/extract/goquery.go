package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GoqueryReader adapts a parsed HTML document to the ElementReader
// interface. It backs the HTML-fetch strategy and lets the ladder be
// exercised without a browser.
type GoqueryReader struct {
	doc     *goquery.Document
	baseURL string
}

// NewGoqueryReader parses the given markup
func NewGoqueryReader(html, baseURL string) (*GoqueryReader, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &GoqueryReader{doc: doc, baseURL: baseURL}, nil
}

// Query returns the elements matching a CSS selector
func (r *GoqueryReader) Query(selector string) []Element {
	var elements []Element
	r.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &goqueryElement{sel: s})
	})
	return elements
}

// Text returns the document's visible text with script and style
// content removed, the way a rendered page would present it
func (r *GoqueryReader) Text() string {
	root := r.doc.Selection
	if body := r.doc.Find("body"); body.Length() > 0 {
		root = body
	}
	clone := root.Clone()
	clone.Find("script, style, noscript").Remove()
	return clone.Text()
}

// BaseURL returns the document URL used to resolve relative links
func (r *GoqueryReader) BaseURL() string {
	return r.baseURL
}

type goqueryElement struct {
	sel *goquery.Selection
}

func (e *goqueryElement) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

func (e *goqueryElement) QueryOne(selector string) Element {
	found := e.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil
	}
	return &goqueryElement{sel: found}
}

func (e *goqueryElement) Attr(name string) string {
	value, _ := e.sel.Attr(name)
	return value
}
