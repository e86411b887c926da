package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"careersync/pkg/models"
)

// jsonLDSelector matches embedded schema.org metadata blocks
const jsonLDSelector = `script[type="application/ld+json"]`

// ExtractJSONLD extracts jobs from embedded JSON-LD blocks. Every
// script block is parsed independently; blocks that are not valid JSON
// or hold no JobPosting objects contribute nothing.
func ExtractJSONLD(reader ElementReader) []models.RawJobData {
	var jobs []models.RawJobData
	for _, script := range reader.Query(jsonLDSelector) {
		content := strings.TrimSpace(script.Text())
		if content == "" {
			continue
		}

		var node interface{}
		if err := json.Unmarshal([]byte(content), &node); err != nil {
			continue
		}
		jobs = append(jobs, collectJobPostings(node)...)
	}
	return jobs
}

// collectJobPostings walks a decoded JSON-LD node, accepting JobPosting
// objects at the top level, inside arrays and inside @graph containers
func collectJobPostings(node interface{}) []models.RawJobData {
	switch v := node.(type) {
	case []interface{}:
		var jobs []models.RawJobData
		for _, item := range v {
			jobs = append(jobs, collectJobPostings(item)...)
		}
		return jobs
	case map[string]interface{}:
		if t, _ := v["@type"].(string); strings.EqualFold(t, "JobPosting") {
			return []models.RawJobData{mapJobPosting(v)}
		}
		if graph, ok := v["@graph"]; ok {
			return collectJobPostings(graph)
		}
		return nil
	default:
		return nil
	}
}

// mapJobPosting maps schema.org JobPosting fields into the raw-record shape
func mapJobPosting(v map[string]interface{}) models.RawJobData {
	raw := models.RawJobData{}

	putFirst(raw, "id", v["identifier"], v["id"])
	putFirst(raw, "title", v["title"])
	putFirst(raw, "description", v["description"])
	putFirst(raw, "location", jsonPath(v, "jobLocation", "address", "addressLocality"))
	putFirst(raw, "department", jsonPath(v, "hiringOrganization", "name"), v["department"])
	putFirst(raw, "type", v["employmentType"])
	putFirst(raw, "posted_date", v["datePosted"])
	putFirst(raw, "apply_url", v["url"], v["applicationUrl"])

	return raw
}

// putFirst stores the first candidate that renders as a non-empty string
func putFirst(raw models.RawJobData, key string, candidates ...interface{}) {
	for _, candidate := range candidates {
		if s := jsonText(candidate); s != "" {
			raw[key] = s
			return
		}
	}
}

// jsonText renders a JSON-LD value as a string. Schema.org wraps many
// scalars in typed objects, so value and name properties are unwrapped.
func jsonText(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]interface{}:
		if inner, ok := val["value"]; ok {
			return jsonText(inner)
		}
		if inner, ok := val["name"]; ok {
			return jsonText(inner)
		}
		return ""
	case []interface{}:
		if len(val) > 0 {
			return jsonText(val[0])
		}
		return ""
	default:
		return ""
	}
}

// jsonPath walks nested objects by key, descending into the first
// element of any array it meets along the way
func jsonPath(v interface{}, keys ...string) interface{} {
	current := v
	for _, key := range keys {
		if arr, ok := current.([]interface{}); ok {
			if len(arr) == 0 {
				return nil
			}
			current = arr[0]
		}
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}
