package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"careersync/pkg/models"
)

// DefaultJobType is used when no employment-type alias resolves
const DefaultJobType = "Full-time"

// Key aliases consulted in priority order. Sources disagree on naming,
// so each logical field maps to every spelling seen in the wild.
var (
	titleKeys       = []string{"title", "position_title", "name"}
	idKeys          = []string{"id", "job_id"}
	departmentKeys  = []string{"department", "team", "division"}
	locationKeys    = []string{"location", "city", "office"}
	typeKeys        = []string{"type", "employment_type", "schedule"}
	descriptionKeys = []string{"description", "summary", "details"}
	applyURLKeys    = []string{"apply_url", "application_url", "url", "link"}
	postedDateKeys  = []string{"posted_date", "created_at", "date_posted"}
)

// isoFormat renders timestamps the way the downstream content system
// expects them: UTC with millisecond precision
const isoFormat = "2006-01-02T15:04:05.000Z"

// dateLayouts are tried in order when coercing a posted date
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
}

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

const maxSlugLength = 20

// idValue coerces a raw id to a trimmed string. Sources routinely send
// numeric ids, so numbers are stringified here; every other field treats
// non-strings as absent
func idValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		// JSON numbers decode as float64; print whole numbers without a decimal part
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		return ""
	}
}

// firstString returns the first key whose value is a non-empty string.
// Wrong-shaped values (numbers, nil, nested structures) are skipped
func firstString(raw models.RawJobData, keys []string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			if s, isString := v.(string); isString {
				if s = strings.TrimSpace(s); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// ExtractTitle returns the job title, or "" when no alias resolves.
// An empty title is the caller's signal to drop the record.
func ExtractTitle(raw models.RawJobData) string {
	return firstString(raw, titleKeys)
}

// ExtractID returns the record's own id when present, "" otherwise
func ExtractID(raw models.RawJobData) string {
	for _, key := range idKeys {
		if v, ok := raw[key]; ok && v != nil {
			if s := idValue(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// ExtractDepartment returns the department, team or division
func ExtractDepartment(raw models.RawJobData) string {
	return firstString(raw, departmentKeys)
}

// ExtractLocation returns the location, city or office
func ExtractLocation(raw models.RawJobData) string {
	return firstString(raw, locationKeys)
}

// ExtractJobType returns the employment type, defaulting to Full-time
func ExtractJobType(raw models.RawJobData) string {
	if s := firstString(raw, typeKeys); s != "" {
		return s
	}
	return DefaultJobType
}

// ExtractDescription returns the unsanitized description text
func ExtractDescription(raw models.RawJobData) string {
	return firstString(raw, descriptionKeys)
}

// ExtractApplyURL returns the application URL, or "" when absent
func ExtractApplyURL(raw models.RawJobData) string {
	return firstString(raw, applyURLKeys)
}

// ExtractPostedDate returns an ISO-8601 timestamp for the record's
// posted date. Absent or unparsable values fall back to now.
func ExtractPostedDate(raw models.RawJobData, now time.Time) string {
	value := firstString(raw, postedDateKeys)
	if value == "" {
		return FormatISO(now)
	}
	return CoerceISODate(value, now)
}

// CoerceISODate parses a loosely formatted date string and re-renders it
// in canonical ISO-8601, falling back to now when nothing parses
func CoerceISODate(value string, now time.Time) string {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return FormatISO(t)
		}
	}
	return FormatISO(now)
}

// FormatISO renders a time in the canonical ISO-8601 form
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoFormat)
}

// SlugID derives a fallback job id from the title: the lower-cased title
// with non-alphanumeric runs collapsed to single hyphens, capped at 20
// characters, plus the epoch milliseconds of the processing time
func SlugID(title string, now time.Time) string {
	slug := strings.ToLower(title)
	slug = nonAlnumRun.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	return fmt.Sprintf("%s-%d", slug, now.UnixMilli())
}
