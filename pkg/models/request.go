package models

import "time"

// FetchRequest is the request payload for fetching jobs from a careers page.
type FetchRequest struct {
	CareersURL  string        `json:"careers_url" validate:"required,url"`
	CompanyID   string        `json:"company_id" validate:"required"`
	APIBaseURL  string        `json:"api_base_url,omitempty" validate:"omitempty,url"`
	TimeoutSecs int           `json:"timeout_secs,omitempty" validate:"omitempty,min=1,max=300"`
	Retries     int           `json:"retries,omitempty" validate:"omitempty,min=1,max=10"`
	Options     *FetchOptions `json:"options,omitempty"`
}

// FetchOptions provides per-request tuning for the acquisition strategies.
type FetchOptions struct {
	Engine   string    `json:"engine,omitempty" validate:"omitempty,oneof=auto htmlfetch browser firecrawl"`
	Headless *bool     `json:"headless,omitempty"`
	Debug    bool      `json:"debug,omitempty"`
	Selector string    `json:"selector,omitempty"`
	Source   JobSource `json:"source,omitempty" validate:"omitempty,oneof=manual webhook automated-scrape"`
}

// ToSourceConfig converts the validated request into the source
// configuration the orchestrator consumes.
func (r *FetchRequest) ToSourceConfig() SourceConfig {
	return SourceConfig{
		CareersURL: r.CareersURL,
		CompanyID:  r.CompanyID,
		APIBaseURL: r.APIBaseURL,
		Timeout:    time.Duration(r.TimeoutSecs) * time.Second,
		Retries:    r.Retries,
		Options:    r.Options,
	}
}
