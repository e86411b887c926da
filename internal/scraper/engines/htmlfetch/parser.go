package htmlfetch

import (
	"fmt"

	"careersync/internal/config"
	"careersync/internal/logging/types"
	"careersync/internal/scraper/extract"
	"careersync/pkg/models"
)

// PageParser turns a fetched careers page into raw job records. Injected so
// tests can exercise the strategy without real HTML parsing.
type PageParser interface {
	ParseJobs(html, baseURL string) ([]models.RawJobData, string, error)
}

// LadderParser runs static HTML through the shared extraction ladder.
type LadderParser struct {
	ladder *extract.Ladder
}

// NewLadderParser creates a parser backed by the configured title pattern.
func NewLadderParser(cfg *config.Config, logger types.Logger) (*LadderParser, error) {
	freeText, err := extract.NewFreeTextExtractor(cfg.GetTitlePattern())
	if err != nil {
		return nil, err
	}

	return &LadderParser{
		ladder: extract.NewLadder(nil, freeText, logger),
	}, nil
}

// ParseJobs extracts raw job records and reports which technique produced them.
func (p *LadderParser) ParseJobs(html, baseURL string) ([]models.RawJobData, string, error) {
	reader, err := extract.NewGoqueryReader(html, baseURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	jobs, technique := p.ladder.Extract(reader)
	return jobs, technique, nil
}
