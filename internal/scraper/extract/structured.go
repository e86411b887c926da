package extract

import (
	"careersync/pkg/models"
	"careersync/pkg/utils"
)

// DefaultJobSelectors are the candidate container selectors probed for
// structured job listings, in priority order
var DefaultJobSelectors = []string{
	".job-listing",
	".job-item",
	".career-listing",
	".position",
	".opening",
	"[data-job]",
	".job-card",
}

// Sub-selector lists tried inside each matched container
var (
	titleSelectors       = []string{"h1", "h2", "h3", "h4", ".title", ".job-title", ".position-title", "a"}
	locationSelectors    = []string{".location", ".job-location", ".city", ".office"}
	departmentSelectors  = []string{".department", ".team", ".division", ".category"}
	descriptionSelectors = []string{".description", ".summary", ".excerpt", "p"}
)

// ExtractStructured extracts jobs from structured listing elements. The
// first selector that matches at least one element wins; every matched
// element becomes one raw record. Records without a resolvable title are
// the normalizer's problem, not this function's.
func ExtractStructured(reader ElementReader, selectors []string) []models.RawJobData {
	if len(selectors) == 0 {
		selectors = DefaultJobSelectors
	}

	for _, selector := range selectors {
		elements := reader.Query(selector)
		if len(elements) == 0 {
			continue
		}

		jobs := make([]models.RawJobData, 0, len(elements))
		for _, el := range elements {
			jobs = append(jobs, extractJobElement(el, reader.BaseURL()))
		}
		return jobs
	}
	return nil
}

func extractJobElement(el Element, baseURL string) models.RawJobData {
	raw := models.RawJobData{}

	if title := firstText(el, titleSelectors); title != "" {
		raw["title"] = title
	}
	if location := firstText(el, locationSelectors); location != "" {
		raw["location"] = location
	}
	if department := firstText(el, departmentSelectors); department != "" {
		raw["department"] = department
	}
	if description := firstText(el, descriptionSelectors); description != "" {
		raw["description"] = description
	}
	if href := anchorHref(el); href != "" {
		raw["apply_url"] = utils.ResolveURL(baseURL, href)
	}

	return raw
}

// firstText returns the text of the first sub-selector that matches a
// non-empty element
func firstText(el Element, selectors []string) string {
	for _, selector := range selectors {
		if found := el.QueryOne(selector); found != nil {
			if text := found.Text(); text != "" {
				return text
			}
		}
	}
	return ""
}

// anchorHref returns the href of the element's first anchor, checking
// the element itself before its descendants
func anchorHref(el Element) string {
	if href := el.Attr("href"); href != "" {
		return href
	}
	if anchor := el.QueryOne("a"); anchor != nil {
		return anchor.Attr("href")
	}
	return ""
}
