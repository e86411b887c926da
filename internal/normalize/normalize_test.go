package normalize

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careersync/internal/logging"
	"careersync/pkg/models"
)

var slugIDPattern = regexp.MustCompile(`^[a-z0-9-]{0,21}-\d+$`)

func newTestNormalizer() *Normalizer {
	// A MultiLogger with no adapters swallows output.
	return New(logging.NewMultiLogger())
}

func TestNormalizeJobsDropsRecordsWithoutTitle(t *testing.T) {
	n := newTestNormalizer()

	rawJobs := []models.RawJobData{
		{"title": "Backend Engineer"},
		{"location": "Berlin"},
		{"name": "Platform Engineer"},
		{"description": "no title aliases at all"},
	}

	jobs := n.NormalizeJobs(rawJobs, models.SourceAutomated)

	require.Len(t, jobs, 2)
	assert.Equal(t, "Backend Engineer", jobs[0].Title)
	assert.Equal(t, "Platform Engineer", jobs[1].Title)
}

func TestNormalizeJobsEndToEnd(t *testing.T) {
	n := newTestNormalizer()

	raw := models.RawJobData{
		"position_title": "Senior Engineer",
		"city":           "Austin, TX",
		"created_at":     "2025-01-01",
	}

	jobs := n.NormalizeJobs([]models.RawJobData{raw}, models.SourceManual)
	require.Len(t, jobs, 1)

	job := jobs[0]
	assert.Equal(t, "Senior Engineer", job.Title)
	assert.Equal(t, "Austin, TX", job.Location)
	assert.Equal(t, "", job.Department)
	assert.Equal(t, "Full-time", job.Type)
	assert.Equal(t, "2025-01-01T00:00:00.000Z", job.PostedDate)
	assert.Equal(t, "", job.ApplyURL)
	assert.Equal(t, models.SourceManual, job.Source)
	assert.Regexp(t, slugIDPattern, job.ID)
	assert.True(t, len(job.ID) > len("senior-engineer-"), "id carries an epoch suffix")
	assert.Contains(t, job.ID, "senior-engineer-")
}

func TestNormalizeJobsKeepsSuppliedID(t *testing.T) {
	n := newTestNormalizer()

	rawJobs := []models.RawJobData{
		{"title": "With string id", "id": "jr-101"},
		{"title": "With numeric id", "job_id": float64(2024)},
	}

	jobs := n.NormalizeJobs(rawJobs, models.SourceWebhook)
	require.Len(t, jobs, 2)
	assert.Equal(t, "jr-101", jobs[0].ID)
	assert.Equal(t, "2024", jobs[1].ID)
}

func TestNormalizeJobsSharedProcessedAt(t *testing.T) {
	n := newTestNormalizer()

	rawJobs := []models.RawJobData{
		{"title": "First"},
		{"title": "Second"},
		{"title": "Third"},
	}

	jobs := n.NormalizeJobs(rawJobs, models.SourceAutomated)
	require.Len(t, jobs, 3)
	assert.NotEmpty(t, jobs[0].ProcessedAt)
	assert.Equal(t, jobs[0].ProcessedAt, jobs[1].ProcessedAt)
	assert.Equal(t, jobs[0].ProcessedAt, jobs[2].ProcessedAt)
}

func TestNormalizeJobsSanitizesDescription(t *testing.T) {
	n := newTestNormalizer()

	raw := models.RawJobData{
		"title":       "Content Editor",
		"description": `<p start="3" align="center">Edit    things</p>`,
	}

	jobs := n.NormalizeJobs([]models.RawJobData{raw}, models.SourceAutomated)
	require.Len(t, jobs, 1)
	assert.Equal(t, "<p>Edit things</p>", jobs[0].Description)
}

func TestNormalizeJobsRetainsRawData(t *testing.T) {
	n := newTestNormalizer()

	raw := models.RawJobData{
		"title":        "Archivist",
		"internal_ref": "keep-me",
	}

	jobs := n.NormalizeJobs([]models.RawJobData{raw}, models.SourceManual)
	require.Len(t, jobs, 1)
	assert.Equal(t, "keep-me", jobs[0].RawData["internal_ref"])
}

func TestNormalizeJobsEmptyBatch(t *testing.T) {
	n := newTestNormalizer()

	jobs := n.NormalizeJobs(nil, models.SourceAutomated)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}
