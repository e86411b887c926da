package models

import (
	"time"
)

// JobSource identifies where a batch of job records came from.
type JobSource string

const (
	SourceManual    JobSource = "manual"
	SourceWebhook   JobSource = "webhook"
	SourceAutomated JobSource = "automated-scrape"
)

// RawJobData is one job posting exactly as an extraction strategy produced
// it. No key is guaranteed present and most logical fields have several
// aliases (title/position_title/name and so on). Treated as immutable once
// created and retained verbatim on the normalized record for auditing.
type RawJobData map[string]interface{}

// NormalizedJob is the canonical job record produced by the normalizer.
// ID and Title are always non-empty; every other string field is defaulted,
// never absent. PostedDate and ProcessedAt are ISO-8601 strings.
type NormalizedJob struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Department  string     `json:"department"`
	Location    string     `json:"location"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	ApplyURL    string     `json:"apply_url"`
	PostedDate  string     `json:"posted_date"`
	Source      JobSource  `json:"source"`
	RawData     RawJobData `json:"raw_data,omitempty"`
	ProcessedAt string     `json:"processed_at"`
}

// FetchMethodNone is the Method value reported when no strategy could
// handle the source or all capable strategies failed.
const FetchMethodNone = "none"

// JobFetchResult is the envelope every fetch produces, success or not.
// Method names the strategy that yielded the jobs.
type JobFetchResult struct {
	Jobs       []NormalizedJob `json:"jobs"`
	Method     string          `json:"method"`
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
	FetchedAt  time.Time       `json:"fetched_at"`
	TotalCount int             `json:"total_count"`
}

// SourceConfig describes one careers-page source to fetch from.
type SourceConfig struct {
	CareersURL string        `json:"careers_url" yaml:"careers_url"`
	CompanyID  string        `json:"company_id" yaml:"company_id"`
	APIBaseURL string        `json:"api_base_url,omitempty" yaml:"api_base_url"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout"`
	Retries    int           `json:"retries,omitempty" yaml:"retries"`
	Options    *FetchOptions `json:"options,omitempty" yaml:"options"`
}

// GetTimeout returns the navigation/request timeout for this source.
func (sc *SourceConfig) GetTimeout() time.Duration {
	if sc.Timeout > 0 {
		return sc.Timeout
	}
	return 30 * time.Second
}

// GetRetries returns the retry budget for this source.
func (sc *SourceConfig) GetRetries() int {
	if sc.Retries > 0 {
		return sc.Retries
	}
	return 3
}

// GetSource returns the provenance tag for this fetch, defaulting to
// automated scraping when the request did not say otherwise.
func (sc *SourceConfig) GetSource() JobSource {
	if sc.Options != nil && sc.Options.Source != "" {
		return sc.Options.Source
	}
	return SourceAutomated
}

// IsHeadless reports whether the browser strategy should run headless.
func (sc *SourceConfig) IsHeadless() bool {
	if sc.Options != nil && sc.Options.Headless != nil {
		return *sc.Options.Headless
	}
	return true
}

// IsDebug reports whether debug artifacts (screenshots) were requested.
func (sc *SourceConfig) IsDebug() bool {
	return sc.Options != nil && sc.Options.Debug
}

// GetSelector returns the content-ready CSS selector for layered waits.
func (sc *SourceConfig) GetSelector() string {
	if sc.Options != nil {
		return sc.Options.Selector
	}
	return ""
}

// GetEngine returns the explicitly requested strategy name, if any.
func (sc *SourceConfig) GetEngine() string {
	if sc.Options != nil {
		return sc.Options.Engine
	}
	return ""
}
