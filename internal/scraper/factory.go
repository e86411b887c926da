package scraper

import (
	"fmt"
	"strings"

	"careersync/internal/config"
	"careersync/internal/scraper/engines/browser"
	"careersync/internal/scraper/engines/firecrawl"
	"careersync/internal/scraper/engines/htmlfetch"
)

// DefaultStrategyFactory implements StrategyFactory.
type DefaultStrategyFactory struct {
	config *config.Config
}

// NewStrategyFactory creates a new strategy factory.
func NewStrategyFactory(cfg *config.Config) StrategyFactory {
	return &DefaultStrategyFactory{config: cfg}
}

// CreateStrategies returns strategies for the given engine in priority
// order. The empty engine and "auto" yield the full ladder: plain HTML
// fetch first, then the browser, then Firecrawl when it is configured.
func (f *DefaultStrategyFactory) CreateStrategies(engine string) ([]Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", "auto":
		return f.createLadder()
	case "htmlfetch":
		s, err := htmlfetch.NewStrategy(f.config)
		if err != nil {
			return nil, err
		}
		return []Strategy{s}, nil
	case "browser":
		s, err := browser.NewStrategy(f.config)
		if err != nil {
			return nil, err
		}
		return []Strategy{s}, nil
	case "firecrawl":
		s, err := firecrawl.NewStrategy(f.config)
		if err != nil {
			return nil, err
		}
		return []Strategy{s}, nil
	default:
		return nil, fmt.Errorf("unsupported fetch engine: %s", engine)
	}
}

func (f *DefaultStrategyFactory) createLadder() ([]Strategy, error) {
	htmlStrategy, err := htmlfetch.NewStrategy(f.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create htmlfetch strategy: %w", err)
	}

	browserStrategy, err := browser.NewStrategy(f.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser strategy: %w", err)
	}

	strategies := []Strategy{htmlStrategy, browserStrategy}

	if f.config.Firecrawl.Enabled && f.config.Firecrawl.APIKey != "" {
		firecrawlStrategy, err := firecrawl.NewStrategy(f.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create firecrawl strategy: %w", err)
		}
		strategies = append(strategies, firecrawlStrategy)
	}

	return strategies, nil
}

// GetSupportedEngines returns the engine names the factory accepts.
func (f *DefaultStrategyFactory) GetSupportedEngines() []string {
	return []string{"auto", "htmlfetch", "browser", "firecrawl"}
}
