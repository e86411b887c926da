package firecrawl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mendableai/firecrawl-go"

	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/logging/types"
	"careersync/internal/scraper/extract"
	"careersync/pkg/models"
)

// Strategy fetches careers pages through the Firecrawl API. Firecrawl
// renders and unblocks pages on their infrastructure, which makes it the
// managed escape hatch for sources the local browser cannot crack. Only
// available when an API key is configured.
type Strategy struct {
	config   *config.Config
	app      *firecrawl.FirecrawlApp
	ladder   *extract.Ladder
	freeText *extract.FreeTextExtractor
	phrases  []string
	logger   types.Logger
}

// NewStrategy creates a Firecrawl strategy. Errors when Firecrawl is
// disabled or unconfigured, so the factory can skip it cleanly.
func NewStrategy(cfg *config.Config) (*Strategy, error) {
	if !cfg.Firecrawl.Enabled {
		return nil, fmt.Errorf("firecrawl is not enabled")
	}
	if cfg.Firecrawl.APIKey == "" {
		return nil, fmt.Errorf("firecrawl API key not configured")
	}

	logger := logging.GetGlobalLogger()

	app, err := firecrawl.NewFirecrawlApp(cfg.Firecrawl.APIKey, cfg.Firecrawl.APIURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firecrawl: %w", err)
	}

	freeText, err := extract.NewFreeTextExtractor(cfg.GetTitlePattern())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize title pattern: %w", err)
	}

	logger.Info("Firecrawl strategy initialized", map[string]interface{}{
		"api_url": cfg.Firecrawl.APIURL,
	})

	return &Strategy{
		config:   cfg,
		app:      app,
		ladder:   extract.NewLadder(nil, freeText, logger),
		freeText: freeText,
		phrases:  cfg.GetNoOpeningsPhrases(),
		logger:   logger,
	}, nil
}

func (s *Strategy) Name() string {
	return "firecrawl"
}

// CanHandle reports whether this strategy can fetch the given source.
func (s *Strategy) CanHandle(cfg *models.SourceConfig) bool {
	return s.app != nil && cfg != nil && strings.TrimSpace(cfg.CareersURL) != ""
}

// FetchJobs scrapes the careers page via Firecrawl and runs the result
// through the extraction ladder.
func (s *Strategy) FetchJobs(ctx context.Context, cfg *models.SourceConfig) ([]models.RawJobData, error) {
	doc, err := s.scrape(ctx, cfg.CareersURL)
	if err != nil {
		return nil, err
	}

	if doc.HTML != "" {
		return s.extractFromHTML(doc.HTML, cfg)
	}
	if doc.Markdown != "" {
		return s.extractFromText(doc.Markdown, cfg)
	}
	return nil, fmt.Errorf("no content found in firecrawl response")
}

// scrape performs the Firecrawl API call with simple linear-backoff retries.
func (s *Strategy) scrape(ctx context.Context, url string) (*firecrawl.FirecrawlDocument, error) {
	params := &firecrawl.ScrapeParams{
		Formats: []string{"html", "markdown"},
	}

	var doc *firecrawl.FirecrawlDocument
	var err error

	maxRetries := s.config.Firecrawl.MaxRetries
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		doc, err = s.app.ScrapeURL(url, params)
		if err == nil && doc != nil {
			return doc, nil
		}

		s.logger.Warn("Firecrawl scrape attempt failed", map[string]interface{}{
			"url":     url,
			"attempt": attempt,
			"error":   errString(err),
		})

		if attempt < maxRetries {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if err != nil {
		return nil, fmt.Errorf("firecrawl scraping failed after %d attempts: %w", maxRetries, err)
	}
	return nil, fmt.Errorf("firecrawl returned no result after %d attempts", maxRetries)
}

func (s *Strategy) extractFromHTML(html string, cfg *models.SourceConfig) ([]models.RawJobData, error) {
	reader, err := extract.NewGoqueryReader(html, cfg.CareersURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse firecrawl HTML: %w", err)
	}

	if phrase := s.matchNoOpenings(reader.Text()); phrase != "" {
		s.logger.Info("Careers page reports no open positions", map[string]interface{}{
			"url":        cfg.CareersURL,
			"company_id": cfg.CompanyID,
			"phrase":     phrase,
		})
		return []models.RawJobData{}, nil
	}

	records, technique := s.ladder.Extract(reader)

	s.logger.Info("Firecrawl fetch extracted job records", map[string]interface{}{
		"url":        cfg.CareersURL,
		"company_id": cfg.CompanyID,
		"count":      len(records),
		"technique":  technique,
	})

	if records == nil {
		records = []models.RawJobData{}
	}
	return records, nil
}

// extractFromText handles markdown-only responses with the free-text rung.
func (s *Strategy) extractFromText(text string, cfg *models.SourceConfig) ([]models.RawJobData, error) {
	if phrase := s.matchNoOpenings(text); phrase != "" {
		s.logger.Info("Careers page reports no open positions", map[string]interface{}{
			"url":        cfg.CareersURL,
			"company_id": cfg.CompanyID,
			"phrase":     phrase,
		})
		return []models.RawJobData{}, nil
	}

	records := s.freeText.Extract(text, time.Now())
	if records == nil {
		records = []models.RawJobData{}
	}
	return records, nil
}

func (s *Strategy) matchNoOpenings(text string) string {
	lower := strings.ToLower(text)
	for _, phrase := range s.phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return phrase
		}
	}
	return ""
}

// Cleanup is a no-op; the Firecrawl client holds no local resources.
func (s *Strategy) Cleanup() {}

// IsHealthy reports whether the strategy is configured to make API calls.
func (s *Strategy) IsHealthy() bool {
	return s.app != nil && s.config.Firecrawl.APIKey != ""
}

func errString(err error) string {
	if err == nil {
		return "empty result"
	}
	return err.Error()
}
