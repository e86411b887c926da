package normalize

import (
	"regexp"
	"strings"
)

// containerTagPattern matches the opening of tags that must not carry
// list or alignment attributes when they reach the downstream content
// filter. Ordered lists legitimately carry start, so list tags are
// deliberately absent.
const containerTagPattern = `(?:p|div|span|h[1-6]|section|article|header|footer|aside|main)`

// DescriptionSanitizer strips markup artifacts that make the downstream
// content filter truncate descriptions: start and align attributes on
// non-list tags, mso-* style declarations pasted out of word processors
// and XML-namespace attributes from legacy office documents.
type DescriptionSanitizer struct {
	startAttr  *regexp.Regexp
	alignAttr  *regexp.Regexp
	msoDecl    *regexp.Regexp
	emptyStyle *regexp.Regexp
	xmlNSAttr  *regexp.Regexp
	hSpace     *regexp.Regexp
}

// NewDescriptionSanitizer creates a sanitizer with its patterns compiled
func NewDescriptionSanitizer() *DescriptionSanitizer {
	return &DescriptionSanitizer{
		startAttr:  regexp.MustCompile(`(?i)(<` + containerTagPattern + `\b[^>]*?)\s+start\s*=\s*(?:"[^"]*"|'[^']*')`),
		alignAttr:  regexp.MustCompile(`(?i)(<` + containerTagPattern + `\b[^>]*?)\s+align\s*=\s*(?:"[^"]*"|'[^']*')`),
		msoDecl:    regexp.MustCompile(`(?i)mso-[a-z-]+\s*:\s*[^;"']*;?\s*`),
		emptyStyle: regexp.MustCompile(`(?i)\s+style\s*=\s*(?:""|'')`),
		xmlNSAttr:  regexp.MustCompile(`(?i)\s+[a-z]+:[a-z-]+\s*=\s*(?:"[^"]*"|'[^']*')`),
		hSpace:     regexp.MustCompile(`[ \t]+`),
	}
}

// Sanitize applies the attribute-stripping pipeline to a description.
// Attribute stripping runs before empty-style cleanup; beyond that the
// steps are independent. Sanitizing already-sanitized text is a no-op.
func (s *DescriptionSanitizer) Sanitize(description string) string {
	if description == "" {
		return ""
	}

	out := s.startAttr.ReplaceAllString(description, "$1")
	out = s.alignAttr.ReplaceAllString(out, "$1")
	out = s.msoDecl.ReplaceAllString(out, "")
	out = s.emptyStyle.ReplaceAllString(out, "")
	out = s.xmlNSAttr.ReplaceAllString(out, "")
	out = s.hSpace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
