package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"careersync/internal/config"
	"careersync/internal/logging"
	"careersync/internal/logging/types"
	"careersync/internal/normalize"
	"careersync/internal/observability"
	"careersync/pkg/models"
)

// Orchestrator runs the strategy ladder for each fetch request. Strategies
// are tried in priority order; the first one to succeed wins and its raw
// records are normalized into the result envelope. Strategy failures are
// logged and absorbed, never propagated: the orchestrator always returns a
// result envelope.
type Orchestrator struct {
	config     *config.Config
	strategies []Strategy
	normalizer *normalize.Normalizer
	stats      *observability.Stats
	logger     types.Logger
}

// NewOrchestrator assembles the full strategy ladder. Strategies are
// constructed once and shared across requests; the heavyweight ones launch
// their resources lazily.
func NewOrchestrator(cfg *config.Config) (*Orchestrator, error) {
	factory := NewStrategyFactory(cfg)
	strategies, err := factory.CreateStrategies("")
	if err != nil {
		return nil, fmt.Errorf("failed to assemble fetch strategies: %w", err)
	}

	logger := logging.GetGlobalLogger()
	return &Orchestrator{
		config:     cfg,
		strategies: strategies,
		normalizer: normalize.New(logger),
		stats:      observability.Global(),
		logger:     logger,
	}, nil
}

// NewOrchestratorWithStrategies builds an orchestrator around a fixed
// strategy list.
func NewOrchestratorWithStrategies(cfg *config.Config, strategies []Strategy) *Orchestrator {
	logger := logging.GetGlobalLogger()
	return &Orchestrator{
		config:     cfg,
		strategies: strategies,
		normalizer: normalize.New(logger),
		stats:      observability.Global(),
		logger:     logger,
	}
}

// FetchJobs fetches and normalizes job postings for one source. The
// returned envelope is never nil: every outcome, including total strategy
// exhaustion, is reported through it.
func (o *Orchestrator) FetchJobs(ctx context.Context, cfg *models.SourceConfig) *models.JobFetchResult {
	fetchedAt := time.Now().UTC()

	engine := cfg.GetEngine()
	candidates := o.candidates(engine)
	if len(candidates) == 0 {
		result := o.failureResult(fetchedAt, fmt.Sprintf("no strategy available for engine %q", engine))
		o.stats.RecordFetch(result)
		return result
	}

	var lastErr error
	for _, strategy := range candidates {
		if !strategy.CanHandle(cfg) {
			o.logger.Debug("Strategy cannot handle source, skipping", map[string]interface{}{
				"strategy":   strategy.Name(),
				"url":        cfg.CareersURL,
				"company_id": cfg.CompanyID,
			})
			continue
		}

		rawJobs, err := strategy.FetchJobs(ctx, cfg)
		if err != nil {
			lastErr = err
			o.logger.Warn("Fetch strategy failed", map[string]interface{}{
				"strategy":   strategy.Name(),
				"url":        cfg.CareersURL,
				"company_id": cfg.CompanyID,
				"error":      err.Error(),
			})
			continue
		}

		jobs := o.normalizer.NormalizeJobs(rawJobs, cfg.GetSource())
		o.stats.RecordDropped(len(rawJobs) - len(jobs))

		o.logger.Info("Fetch succeeded", map[string]interface{}{
			"strategy":   strategy.Name(),
			"url":        cfg.CareersURL,
			"company_id": cfg.CompanyID,
			"raw_count":  len(rawJobs),
			"job_count":  len(jobs),
		})

		result := &models.JobFetchResult{
			Jobs:       jobs,
			Method:     strategy.Name(),
			Success:    true,
			Message:    fmt.Sprintf("Fetched %d jobs via %s", len(jobs), strategy.Name()),
			FetchedAt:  fetchedAt,
			TotalCount: len(jobs),
		}
		o.stats.RecordFetch(result)
		return result
	}

	message := "no strategy could handle the source configuration"
	if lastErr != nil {
		message = lastErr.Error()
	}

	o.logger.Error("All fetch strategies exhausted", map[string]interface{}{
		"url":        cfg.CareersURL,
		"company_id": cfg.CompanyID,
		"error":      message,
	})

	result := o.failureResult(fetchedAt, message)
	o.stats.RecordFetch(result)
	return result
}

// candidates returns the strategies eligible for the requested engine.
// An empty engine or "auto" runs the whole ladder.
func (o *Orchestrator) candidates(engine string) []Strategy {
	engine = strings.ToLower(strings.TrimSpace(engine))
	if engine == "" || engine == "auto" {
		return o.strategies
	}

	for _, strategy := range o.strategies {
		if strategy.Name() == engine {
			return []Strategy{strategy}
		}
	}
	return nil
}

func (o *Orchestrator) failureResult(fetchedAt time.Time, message string) *models.JobFetchResult {
	return &models.JobFetchResult{
		Jobs:      []models.NormalizedJob{},
		Method:    models.FetchMethodNone,
		Success:   false,
		Error:     message,
		FetchedAt: fetchedAt,
	}
}

// StrategyHealth reports the health of each configured strategy by name.
func (o *Orchestrator) StrategyHealth() map[string]bool {
	health := make(map[string]bool, len(o.strategies))
	for _, strategy := range o.strategies {
		health[strategy.Name()] = strategy.IsHealthy()
	}
	return health
}

// Cleanup releases resources held by all strategies.
func (o *Orchestrator) Cleanup() {
	for _, strategy := range o.strategies {
		strategy.Cleanup()
	}
}
