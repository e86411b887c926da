package scraper

import (
	"context"

	"careersync/pkg/models"
)

// Strategy is one technique for obtaining raw job records from a careers
// source. Strategies declare what they can handle; the orchestrator tries
// them in priority order and stops at the first success.
type Strategy interface {
	// Name identifies the strategy in fetch results and logs
	Name() string

	// CanHandle reports whether the strategy can work this source configuration
	CanHandle(cfg *models.SourceConfig) bool

	// FetchJobs obtains raw job records from the source
	FetchJobs(ctx context.Context, cfg *models.SourceConfig) ([]models.RawJobData, error)

	// Cleanup releases any resources held by the strategy
	Cleanup()

	// IsHealthy reports whether the strategy is ready to fetch
	IsHealthy() bool
}

// StrategyFactory assembles the ordered strategy list the orchestrator runs
type StrategyFactory interface {
	// CreateStrategies returns the strategies for the given engine, in
	// priority order. An empty engine means the full ladder.
	CreateStrategies(engine string) ([]Strategy, error)

	// GetSupportedEngines returns the engine names the factory accepts
	GetSupportedEngines() []string
}
