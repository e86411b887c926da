package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careersync/internal/config"
	"careersync/pkg/models"
)

type fakeStrategy struct {
	name      string
	canHandle bool
	jobs      []models.RawJobData
	err       error
	calls     int
	cleaned   bool
	healthy   bool
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) CanHandle(cfg *models.SourceConfig) bool { return f.canHandle }

func (f *fakeStrategy) FetchJobs(ctx context.Context, cfg *models.SourceConfig) ([]models.RawJobData, error) {
	f.calls++
	return f.jobs, f.err
}

func (f *fakeStrategy) Cleanup() { f.cleaned = true }

func (f *fakeStrategy) IsHealthy() bool { return f.healthy }

func testOrchestrator(t *testing.T, strategies ...Strategy) *Orchestrator {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	return NewOrchestratorWithStrategies(cfg, strategies)
}

func testSource() *models.SourceConfig {
	return &models.SourceConfig{
		CareersURL: "https://jobs.acme.example/careers",
		CompanyID:  "acme",
	}
}

func rawJob(title string) models.RawJobData {
	return models.RawJobData{"title": title, "location": "Remote"}
}

func TestOrchestratorFirstSuccessWins(t *testing.T) {
	first := &fakeStrategy{name: "htmlfetch", canHandle: true, jobs: []models.RawJobData{rawJob("Backend Engineer")}}
	second := &fakeStrategy{name: "browser", canHandle: true, jobs: []models.RawJobData{rawJob("Should Not Appear")}}

	result := testOrchestrator(t, first, second).FetchJobs(context.Background(), testSource())

	require.True(t, result.Success)
	assert.Equal(t, "htmlfetch", result.Method)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "later strategies should not run after a success")

	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "Backend Engineer", result.Jobs[0].Title)
	assert.Equal(t, 1, result.TotalCount)
	assert.Equal(t, "Fetched 1 jobs via htmlfetch", result.Message)
	assert.False(t, result.FetchedAt.IsZero())
}

func TestOrchestratorFallsThroughOnError(t *testing.T) {
	first := &fakeStrategy{name: "htmlfetch", canHandle: true, err: errors.New("HTML page not accessible")}
	second := &fakeStrategy{name: "browser", canHandle: true, jobs: []models.RawJobData{rawJob("Platform Engineer")}}

	result := testOrchestrator(t, first, second).FetchJobs(context.Background(), testSource())

	require.True(t, result.Success)
	assert.Equal(t, "browser", result.Method)
	assert.Empty(t, result.Error, "an earlier strategy failure must not leak into a successful result")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestOrchestratorSkipsIncapableStrategies(t *testing.T) {
	first := &fakeStrategy{name: "htmlfetch", canHandle: false}
	second := &fakeStrategy{name: "browser", canHandle: true, jobs: []models.RawJobData{rawJob("SRE")}}

	result := testOrchestrator(t, first, second).FetchJobs(context.Background(), testSource())

	require.True(t, result.Success)
	assert.Equal(t, 0, first.calls, "incapable strategies must be skipped without being invoked")
	assert.Equal(t, "browser", result.Method)
}

func TestOrchestratorExhaustionEnvelope(t *testing.T) {
	first := &fakeStrategy{name: "htmlfetch", canHandle: true, err: errors.New("HTML page not accessible")}
	second := &fakeStrategy{name: "browser", canHandle: true, err: errors.New("browser fetch failed after 3 attempts")}

	result := testOrchestrator(t, first, second).FetchJobs(context.Background(), testSource())

	require.False(t, result.Success)
	assert.Equal(t, models.FetchMethodNone, result.Method)
	assert.Equal(t, "browser fetch failed after 3 attempts", result.Error)
	require.NotNil(t, result.Jobs)
	assert.Empty(t, result.Jobs)
	assert.Zero(t, result.TotalCount)
	assert.False(t, result.FetchedAt.IsZero())
}

func TestOrchestratorNoCapableStrategy(t *testing.T) {
	first := &fakeStrategy{name: "htmlfetch", canHandle: false}
	second := &fakeStrategy{name: "browser", canHandle: false}

	result := testOrchestrator(t, first, second).FetchJobs(context.Background(), testSource())

	require.False(t, result.Success)
	assert.Equal(t, models.FetchMethodNone, result.Method)
	assert.Equal(t, "no strategy could handle the source configuration", result.Error)
}

func TestOrchestratorHonorsRequestedEngine(t *testing.T) {
	first := &fakeStrategy{name: "htmlfetch", canHandle: true, jobs: []models.RawJobData{rawJob("Wrong Engine")}}
	second := &fakeStrategy{name: "browser", canHandle: true, jobs: []models.RawJobData{rawJob("Browser Job")}}

	source := testSource()
	source.Options = &models.FetchOptions{Engine: "browser"}

	result := testOrchestrator(t, first, second).FetchJobs(context.Background(), source)

	require.True(t, result.Success)
	assert.Equal(t, "browser", result.Method)
	assert.Equal(t, 0, first.calls)
	require.Len(t, result.Jobs, 1)
	assert.Equal(t, "Browser Job", result.Jobs[0].Title)
}

func TestOrchestratorUnknownEngineFails(t *testing.T) {
	first := &fakeStrategy{name: "htmlfetch", canHandle: true, jobs: []models.RawJobData{rawJob("Any")}}

	source := testSource()
	source.Options = &models.FetchOptions{Engine: "firecrawl"}

	result := testOrchestrator(t, first).FetchJobs(context.Background(), source)

	require.False(t, result.Success)
	assert.Equal(t, models.FetchMethodNone, result.Method)
	assert.Contains(t, result.Error, "firecrawl")
	assert.Equal(t, 0, first.calls)
}

func TestOrchestratorNormalizesRawRecords(t *testing.T) {
	strategy := &fakeStrategy{
		name:      "htmlfetch",
		canHandle: true,
		jobs: []models.RawJobData{
			{"title": "Data Engineer", "location": "Berlin", "type": "full-time"},
			{"location": "Nowhere"}, // no title, dropped by normalization
		},
	}

	result := testOrchestrator(t, strategy).FetchJobs(context.Background(), testSource())

	require.True(t, result.Success)
	require.Len(t, result.Jobs, 1)
	job := result.Jobs[0]
	assert.Equal(t, "Data Engineer", job.Title)
	assert.Equal(t, "Berlin", job.Location)
	assert.Equal(t, models.SourceAutomated, job.Source)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 1, result.TotalCount)
}

func TestOrchestratorStrategyHealthAndCleanup(t *testing.T) {
	first := &fakeStrategy{name: "htmlfetch", canHandle: true, healthy: true}
	second := &fakeStrategy{name: "browser", canHandle: true, healthy: false}

	orch := testOrchestrator(t, first, second)

	health := orch.StrategyHealth()
	assert.True(t, health["htmlfetch"])
	assert.False(t, health["browser"])

	orch.Cleanup()
	assert.True(t, first.cleaned)
	assert.True(t, second.cleaned)
}
