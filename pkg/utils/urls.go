package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ExtractDomain extracts the hostname from a URL string, with any
// www. prefix removed. Rate limiting and the captcha domain ledger key
// on this value.
func ExtractDomain(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	hostname := parsedURL.Hostname()
	if hostname == "" {
		return "", fmt.Errorf("no hostname found in URL")
	}

	return strings.TrimPrefix(hostname, "www."), nil
}

// ResolveURL resolves a possibly-relative href against a base page URL.
// Invalid input degrades to the href unchanged; apply links stay usable
// even when a careers page emits odd markup.
func ResolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}

	return base.ResolveReference(ref).String()
}

// IsHTTPURL reports whether the string parses as an absolute http(s) URL.
func IsHTTPURL(urlStr string) bool {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
