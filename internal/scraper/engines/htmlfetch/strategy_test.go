package htmlfetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careersync/internal/config"
	"careersync/internal/httpx"
	"careersync/internal/logging"
	"careersync/pkg/models"
)

type stubFetcher struct {
	page *httpx.Page
	err  error
}

func (f *stubFetcher) FetchPage(ctx context.Context, rawURL string) (*httpx.Page, error) {
	return f.page, f.err
}

type stubParser struct {
	jobs      []models.RawJobData
	technique string
	err       error
	calls     int
}

func (p *stubParser) ParseJobs(html, baseURL string) ([]models.RawJobData, string, error) {
	p.calls++
	return p.jobs, p.technique, p.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Fetcher.RequestDelay = 5 * time.Millisecond
	return cfg
}

func htmlPage(body string) *httpx.Page {
	return &httpx.Page{
		URL:        "https://acme.example/careers",
		StatusCode: http.StatusOK,
		Body:       body,
	}
}

func TestFetchJobsExtractsRecords(t *testing.T) {
	parser := &stubParser{
		jobs: []models.RawJobData{
			{"title": "Backend Engineer"},
			{"title": "Data Analyst"},
		},
		technique: "structured-dom",
	}
	strategy := NewStrategyWithDeps(testConfig(t), &stubFetcher{page: htmlPage("<html>jobs</html>")}, parser)

	jobs, err := strategy.FetchJobs(context.Background(), &models.SourceConfig{
		CareersURL: "https://acme.example/careers",
		CompanyID:  "acme",
	})

	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Backend Engineer", jobs[0]["title"])
	assert.Equal(t, 1, parser.calls)
}

func TestFetchJobsNoOpeningsOverridesParser(t *testing.T) {
	// The parser claims it found jobs, but the page says otherwise.
	parser := &stubParser{
		jobs: []models.RawJobData{{"title": "Phantom Role"}},
	}
	page := htmlPage("<html><body><p>Sorry, we have No Current Openings right now.</p></body></html>")
	strategy := NewStrategyWithDeps(testConfig(t), &stubFetcher{page: page}, parser)

	jobs, err := strategy.FetchJobs(context.Background(), &models.SourceConfig{
		CareersURL: "https://acme.example/careers",
		CompanyID:  "acme",
	})

	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestFetchJobsPageNotAccessible(t *testing.T) {
	strategy := NewStrategyWithDeps(testConfig(t), &stubFetcher{err: errors.New("status 403")}, &stubParser{})

	_, err := strategy.FetchJobs(context.Background(), &models.SourceConfig{
		CareersURL: "https://acme.example/careers",
		CompanyID:  "acme",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTML page not accessible")
}

func TestFetchJobsParserError(t *testing.T) {
	parser := &stubParser{err: errors.New("bad markup")}
	strategy := NewStrategyWithDeps(testConfig(t), &stubFetcher{page: htmlPage("<html></html>")}, parser)

	_, err := strategy.FetchJobs(context.Background(), &models.SourceConfig{
		CareersURL: "https://acme.example/careers",
		CompanyID:  "acme",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse careers page")
}

func TestCanHandle(t *testing.T) {
	strategy := NewStrategyWithDeps(testConfig(t), &stubFetcher{}, &stubParser{})

	assert.True(t, strategy.CanHandle(&models.SourceConfig{CareersURL: "https://acme.example/careers"}))
	assert.False(t, strategy.CanHandle(&models.SourceConfig{CareersURL: "   "}))
	assert.False(t, strategy.CanHandle(nil))
	assert.Equal(t, "htmlfetch", strategy.Name())
}

func TestFetchJobsEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
			<div class="job-listing"><h3>Platform Engineer</h3><a href="/jobs/1">Apply</a></div>
			<div class="job-listing"><h3>Product Manager</h3><a href="/jobs/2">Apply</a></div>
		</body></html>`))
	}))
	defer server.Close()

	cfg := testConfig(t)
	parser, err := NewLadderParser(cfg, logging.NewMultiLogger())
	require.NoError(t, err)
	strategy := NewStrategyWithDeps(cfg, httpx.NewCollyFetcher(cfg), parser)

	jobs, err := strategy.FetchJobs(context.Background(), &models.SourceConfig{
		CareersURL: server.URL,
		CompanyID:  "acme",
	})

	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Platform Engineer", jobs[0]["title"])
	assert.Equal(t, server.URL+"/jobs/1", jobs[0]["apply_url"])
}
