package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONLDJobPosting(t *testing.T) {
	html := `
	<html><head>
	<script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@type": "JobPosting",
		"identifier": {"@type": "PropertyValue", "name": "acme", "value": "ENG-7"},
		"title": "Staff Engineer",
		"description": "<p>Own the platform roadmap</p>",
		"datePosted": "2025-01-01",
		"employmentType": "FULL_TIME",
		"url": "https://acme.example/jobs/eng-7",
		"hiringOrganization": {"@type": "Organization", "name": "Acme"},
		"jobLocation": {"@type": "Place", "address": {"addressLocality": "Amsterdam"}}
	}
	</script>
	</head><body></body></html>`

	reader := mustReader(t, html, "https://acme.example")
	jobs := ExtractJSONLD(reader)

	require.Len(t, jobs, 1)
	assert.Equal(t, "ENG-7", jobs[0]["id"])
	assert.Equal(t, "Staff Engineer", jobs[0]["title"])
	assert.Equal(t, "<p>Own the platform roadmap</p>", jobs[0]["description"])
	assert.Equal(t, "2025-01-01", jobs[0]["posted_date"])
	assert.Equal(t, "FULL_TIME", jobs[0]["type"])
	assert.Equal(t, "https://acme.example/jobs/eng-7", jobs[0]["apply_url"])
	assert.Equal(t, "Acme", jobs[0]["department"])
	assert.Equal(t, "Amsterdam", jobs[0]["location"])
}

func TestExtractJSONLDArrayAndGraph(t *testing.T) {
	html := `
	<html><head>
	<script type="application/ld+json">
	[{"@type": "JobPosting", "title": "First"}, {"@type": "JobPosting", "title": "Second"}]
	</script>
	<script type="application/ld+json">
	{"@context": "https://schema.org", "@graph": [
		{"@type": "Organization", "name": "Acme"},
		{"@type": "JobPosting", "title": "Third"}
	]}
	</script>
	</head><body></body></html>`

	reader := mustReader(t, html, "https://acme.example")
	jobs := ExtractJSONLD(reader)

	require.Len(t, jobs, 3)
	assert.Equal(t, "First", jobs[0]["title"])
	assert.Equal(t, "Second", jobs[1]["title"])
	assert.Equal(t, "Third", jobs[2]["title"])
}

func TestExtractJSONLDIgnoresOtherTypes(t *testing.T) {
	html := `
	<html><head>
	<script type="application/ld+json">
	{"@type": "WebSite", "name": "Acme Careers"}
	</script>
	</head><body></body></html>`

	reader := mustReader(t, html, "https://acme.example")
	assert.Nil(t, ExtractJSONLD(reader))
}

func TestExtractJSONLDSkipsMalformedBlocks(t *testing.T) {
	html := `
	<html><head>
	<script type="application/ld+json">{not valid json</script>
	<script type="application/ld+json">{"@type": "JobPosting", "title": "Survivor"}</script>
	</head><body></body></html>`

	reader := mustReader(t, html, "https://acme.example")
	jobs := ExtractJSONLD(reader)

	require.Len(t, jobs, 1)
	assert.Equal(t, "Survivor", jobs[0]["title"])
}
