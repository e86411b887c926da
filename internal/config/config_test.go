package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	// Neutralize overrides that may leak in from the test environment.
	t.Setenv("PORT", "")
	t.Setenv("HOST", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10, cfg.Workers.PoolSize)
	assert.Equal(t, 100, cfg.Workers.QueueSize)
	assert.Equal(t, 60, cfg.Workers.RateLimit)
	assert.Equal(t, "/api/jobs/sync", cfg.Sync.Path)
	assert.True(t, cfg.Sync.Enabled)
	assert.False(t, cfg.Sync.Auto)
	assert.True(t, cfg.Browser.HeadlessMode)
	assert.Equal(t, 3, cfg.Browser.MaxRetries)
	assert.Equal(t, DefaultNoOpeningsPhrases, cfg.Fetcher.NoOpeningsPhrases)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigMissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfigReadsYAML(t *testing.T) {
	t.Setenv("PORT", "")

	path := writeConfigFile(t, `
server:
  port: 9090
fetcher:
  max_retries: 5
  no_openings_phrases:
    - "nothing open right now"
sync:
  path: /hooks/jobs
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Fetcher.MaxRetries)
	assert.Equal(t, []string{"nothing open right now"}, cfg.Fetcher.NoOpeningsPhrases)
	assert.Equal(t, "/hooks/jobs", cfg.Sync.Path)

	// Keys the file omits keep their defaults.
	assert.Equal(t, 10, cfg.Workers.PoolSize)
	assert.Equal(t, 30*time.Second, cfg.Sync.Timeout)
}

func TestLoadConfigExpandsEnvVarsInYAML(t *testing.T) {
	t.Setenv("TEST_SYNC_SECRET", "hunter2")

	path := writeConfigFile(t, `
sync:
  secret: ${TEST_SYNC_SECRET}
  default_base_url: ${TEST_SYNC_BASE_URL}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "hunter2", cfg.Sync.Secret)
	// Unset variables are left verbatim rather than collapsing to "".
	assert.Equal(t, "${TEST_SYNC_BASE_URL}", cfg.Sync.DefaultBaseURL)
}

func TestLoadConfigEnvOverridesYAML(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
sync:
  secret: from-file
`)

	t.Setenv("PORT", "7070")
	t.Setenv("SYNC_SECRET", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Sync.Secret)
}

func TestLoadConfigFirecrawlKeyEnablesEngine(t *testing.T) {
	t.Setenv("FIRECRAWL_API_KEY", "fc-test")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.True(t, cfg.Firecrawl.Enabled)
	assert.Equal(t, "fc-test", cfg.Firecrawl.APIKey)
}

func TestGetNoOpeningsPhrasesFallsBack(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, DefaultNoOpeningsPhrases, cfg.GetNoOpeningsPhrases())

	cfg.Fetcher.NoOpeningsPhrases = []string{"custom phrase"}
	assert.Equal(t, []string{"custom phrase"}, cfg.GetNoOpeningsPhrases())
}

func TestGetTitlePatternFallsBack(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, DefaultTitlePattern, cfg.GetTitlePattern())

	cfg.Fetcher.TitlePattern = `\bastronaut\b`
	assert.Equal(t, `\bastronaut\b`, cfg.GetTitlePattern())
}
