package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"careersync/pkg/models"
)

// DefaultMaxTextMatches caps how many free-text matches become records.
// Pattern scanning over arbitrary page text is noisy; past a handful of
// matches the extra records are almost always junk.
const DefaultMaxTextMatches = 20

// FreeTextExtractor scans visible page text for role-title phrases.
// It is the last rung of the ladder: low precision, used only when the
// structured techniques found nothing.
type FreeTextExtractor struct {
	pattern    *regexp.Regexp
	maxMatches int
}

// NewFreeTextExtractor compiles the configured title pattern
func NewFreeTextExtractor(pattern string) (*FreeTextExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid title pattern: %w", err)
	}
	return &FreeTextExtractor{
		pattern:    re,
		maxMatches: DefaultMaxTextMatches,
	}, nil
}

// Extract turns each pattern match into a minimal raw record with a
// generated id and a placeholder description
func (e *FreeTextExtractor) Extract(text string, now time.Time) []models.RawJobData {
	matches := e.pattern.FindAllString(text, e.maxMatches)
	if len(matches) == 0 {
		return nil
	}

	jobs := make([]models.RawJobData, 0, len(matches))
	for i, match := range matches {
		title := strings.TrimSpace(match)
		if title == "" {
			continue
		}
		jobs = append(jobs, models.RawJobData{
			"id":          fmt.Sprintf("text-match-%d-%d", now.UnixMilli(), i),
			"title":       title,
			"description": "Extracted from page text",
		})
	}
	return jobs
}
