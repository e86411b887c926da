package htmlfetch

import (
	"context"
	"fmt"
	"strings"

	"careersync/internal/config"
	"careersync/internal/httpx"
	"careersync/internal/logging"
	"careersync/internal/logging/types"
	"careersync/pkg/models"
)

// Strategy fetches a careers page over plain HTTP and extracts job records
// from the static markup. It is the cheapest acquisition path and runs
// before any browser-based strategy.
type Strategy struct {
	config  *config.Config
	fetcher httpx.PageFetcher
	parser  PageParser
	phrases []string
	logger  types.Logger
}

// NewStrategy creates an HTML-fetch strategy wired to the colly-backed
// page fetcher and the shared extraction ladder.
func NewStrategy(cfg *config.Config) (*Strategy, error) {
	logger := logging.GetGlobalLogger()

	parser, err := NewLadderParser(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize HTML parser: %w", err)
	}

	return &Strategy{
		config:  cfg,
		fetcher: httpx.NewCollyFetcher(cfg),
		parser:  parser,
		phrases: cfg.GetNoOpeningsPhrases(),
		logger:  logger,
	}, nil
}

// NewStrategyWithDeps creates a strategy with explicit collaborators.
func NewStrategyWithDeps(cfg *config.Config, fetcher httpx.PageFetcher, parser PageParser) *Strategy {
	return &Strategy{
		config:  cfg,
		fetcher: fetcher,
		parser:  parser,
		phrases: cfg.GetNoOpeningsPhrases(),
		logger:  logging.GetGlobalLogger(),
	}
}

func (s *Strategy) Name() string {
	return "htmlfetch"
}

// CanHandle reports whether this strategy can fetch the given source.
func (s *Strategy) CanHandle(cfg *models.SourceConfig) bool {
	return cfg != nil && strings.TrimSpace(cfg.CareersURL) != ""
}

// FetchJobs downloads the careers page and extracts raw job records.
// A page that states the company has no open positions yields an empty
// result even when the parser matched something, since listing parsers
// can spuriously match boilerplate on empty-state pages.
func (s *Strategy) FetchJobs(ctx context.Context, cfg *models.SourceConfig) ([]models.RawJobData, error) {
	page, err := s.fetcher.FetchPage(ctx, cfg.CareersURL)
	if err != nil {
		return nil, fmt.Errorf("HTML page not accessible: %w", err)
	}

	body := string(page.Body)
	if phrase := s.matchNoOpenings(body); phrase != "" {
		s.logger.Info("Careers page reports no open positions", map[string]interface{}{
			"url":        cfg.CareersURL,
			"company_id": cfg.CompanyID,
			"phrase":     phrase,
		})
		return []models.RawJobData{}, nil
	}

	jobs, technique, err := s.parser.ParseJobs(body, page.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse careers page: %w", err)
	}

	s.logger.Info("HTML fetch extracted job records", map[string]interface{}{
		"url":        cfg.CareersURL,
		"company_id": cfg.CompanyID,
		"count":      len(jobs),
		"technique":  technique,
	})

	if jobs == nil {
		jobs = []models.RawJobData{}
	}
	return jobs, nil
}

// matchNoOpenings returns the first configured phrase found in the body.
func (s *Strategy) matchNoOpenings(body string) string {
	lower := strings.ToLower(body)
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

// Cleanup releases strategy resources. The HTTP fetcher holds none.
func (s *Strategy) Cleanup() {}

// IsHealthy reports whether the strategy is ready to fetch.
func (s *Strategy) IsHealthy() bool {
	return s.fetcher != nil && s.parser != nil
}
