package browser

import (
	"strings"

	"github.com/go-rod/rod"

	"careersync/internal/scraper/extract"
)

// RodReader adapts a live rod page to the element-reader abstraction the
// extraction ladder runs against. Queries never wait: the layered wait
// has already happened, so whatever is in the DOM now is what gets read.
type RodReader struct {
	page *rod.Page
}

// NewRodReader wraps the session's page for extraction.
func NewRodReader(page *rod.Page) *RodReader {
	return &RodReader{page: page}
}

// Reader returns an element reader over the session's current DOM.
func (s *Session) Reader() *RodReader {
	return NewRodReader(s.Page)
}

func (r *RodReader) Query(selector string) []extract.Element {
	elements, err := r.page.Elements(selector)
	if err != nil || len(elements) == 0 {
		return nil
	}

	out := make([]extract.Element, 0, len(elements))
	for _, el := range elements {
		out = append(out, &rodElement{el: el})
	}
	return out
}

func (r *RodReader) Text() string {
	result, err := r.page.Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return ""
	}
	return result.Value.Str()
}

func (r *RodReader) BaseURL() string {
	info, err := r.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() string {
	text, err := e.el.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (e *rodElement) QueryOne(selector string) extract.Element {
	// Element.Elements does not wait, unlike Element.Element which blocks
	// until the selector appears.
	elements, err := e.el.Elements(selector)
	if err != nil || len(elements) == 0 {
		return nil
	}
	return &rodElement{el: elements.First()}
}

func (e *rodElement) Attr(name string) string {
	value, err := e.el.Attribute(name)
	if err != nil || value == nil {
		return ""
	}
	return *value
}
