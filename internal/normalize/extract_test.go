package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"careersync/pkg/models"
)

func TestExtractTitleAliasPriority(t *testing.T) {
	tests := []struct {
		name     string
		raw      models.RawJobData
		expected string
	}{
		{
			name:     "title wins over other aliases",
			raw:      models.RawJobData{"title": "Backend Engineer", "position_title": "Ignored", "name": "Ignored"},
			expected: "Backend Engineer",
		},
		{
			name:     "position_title when title absent",
			raw:      models.RawJobData{"position_title": "Data Analyst"},
			expected: "Data Analyst",
		},
		{
			name:     "name as last resort",
			raw:      models.RawJobData{"name": "Product Manager"},
			expected: "Product Manager",
		},
		{
			name:     "empty string falls through to next alias",
			raw:      models.RawJobData{"title": "  ", "position_title": "QA Engineer"},
			expected: "QA Engineer",
		},
		{
			name:     "no alias resolves",
			raw:      models.RawJobData{"company": "Acme"},
			expected: "",
		},
		{
			name:     "nil values are skipped",
			raw:      models.RawJobData{"title": nil, "name": "Designer"},
			expected: "Designer",
		},
		{
			name:     "numeric values are skipped",
			raw:      models.RawJobData{"title": float64(42), "name": "Designer"},
			expected: "Designer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractTitle(tt.raw))
		})
	}
}

func TestExtractIDStringifiesNumbers(t *testing.T) {
	// JSON decoding hands numeric ids over as float64
	assert.Equal(t, "12345", ExtractID(models.RawJobData{"id": float64(12345)}))
	assert.Equal(t, "98765", ExtractID(models.RawJobData{"job_id": float64(98765)}))
	assert.Equal(t, "77", ExtractID(models.RawJobData{"id": 77}))
	assert.Equal(t, "", ExtractID(models.RawJobData{}))
}

func TestExtractJobTypeDefaultsToFullTime(t *testing.T) {
	tests := []struct {
		name     string
		raw      models.RawJobData
		expected string
	}{
		{"type present", models.RawJobData{"type": "Contract"}, "Contract"},
		{"employment_type present", models.RawJobData{"employment_type": "Part-time"}, "Part-time"},
		{"schedule present", models.RawJobData{"schedule": "Remote"}, "Remote"},
		{"all absent", models.RawJobData{"title": "X"}, "Full-time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractJobType(tt.raw))
		})
	}
}

func TestExtractPostedDateAlwaysISO(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		raw      models.RawJobData
		expected string
	}{
		{
			name:     "date only",
			raw:      models.RawJobData{"posted_date": "2025-01-01"},
			expected: "2025-01-01T00:00:00.000Z",
		},
		{
			name:     "rfc3339 with offset",
			raw:      models.RawJobData{"created_at": "2025-01-01T10:30:00+02:00"},
			expected: "2025-01-01T08:30:00.000Z",
		},
		{
			name:     "human readable",
			raw:      models.RawJobData{"date_posted": "January 2, 2025"},
			expected: "2025-01-02T00:00:00.000Z",
		},
		{
			name:     "unparsable falls back to now",
			raw:      models.RawJobData{"posted_date": "sometime last week"},
			expected: "2025-03-15T12:00:00.000Z",
		},
		{
			name:     "absent falls back to now",
			raw:      models.RawJobData{},
			expected: "2025-03-15T12:00:00.000Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPostedDate(tt.raw, now)
			assert.Equal(t, tt.expected, got)

			// Whatever the input, the output must parse as ISO-8601.
			_, err := time.Parse("2006-01-02T15:04:05.000Z", got)
			assert.NoError(t, err)
		})
	}
}

func TestSlugID(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{"simple title", "Senior Engineer", "senior-engineer"},
		{"punctuation collapses to single hyphens", "C++ / Rust Developer!", "c-rust-developer"},
		{"truncated to twenty characters", "Principal Distributed Systems Architect", "principal-distribute"},
		{"leading and trailing separators trimmed", "  (Staff) Engineer  ", "staff-engineer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SlugID(tt.title, now)
			assert.Equal(t, tt.expected+"-"+"1742040000000", got)
		})
	}
}
