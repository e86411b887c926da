package extract

// ElementReader abstracts DOM access so the extraction ladder runs
// identically against a live browser page or statically parsed HTML.
type ElementReader interface {
	// Query returns the elements matching a CSS selector
	Query(selector string) []Element

	// Text returns the document's visible text
	Text() string

	// BaseURL returns the document URL used to resolve relative links
	BaseURL() string
}

// Element is one DOM element
type Element interface {
	// Text returns the element's trimmed text content
	Text() string

	// QueryOne returns the first descendant matching the selector, or nil
	QueryOne(selector string) Element

	// Attr returns the attribute value, or "" when absent
	Attr(name string) string
}
